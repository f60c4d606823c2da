package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
	headErr error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data)), ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestS3StoreRoundTrip(t *testing.T) {
	store := &S3Store{Client: &fakeS3{}, Bucket: "models"}
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "models/a.stl", []byte("solid a"), "model/stl"))
	data, err := store.Get(ctx, "models/a.stl")
	require.NoError(t, err)
	require.Equal(t, "solid a", string(data))
}

func TestS3StoreGetMissingKey(t *testing.T) {
	store := &S3Store{Client: &fakeS3{}, Bucket: "models"}
	_, err := store.Get(context.Background(), "models/nope.stl")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestS3StoreGetTooLarge(t *testing.T) {
	store := &S3Store{Client: &fakeS3{objects: map[string][]byte{"big": bytes.Repeat([]byte("x"), 32)}}, Bucket: "models", MaxBytes: 16}
	_, err := store.Get(context.Background(), "big")
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestS3StoreGetTransportFailure(t *testing.T) {
	store := &S3Store{Client: &fakeS3{getErr: errors.New("dial tcp: connection refused")}, Bucket: "models"}
	_, err := store.Get(context.Background(), "models/a.stl")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestS3StorePing(t *testing.T) {
	require.NoError(t, (&S3Store{Client: &fakeS3{}, Bucket: "models"}).Ping(context.Background()))
	err := (&S3Store{Client: &fakeS3{headErr: errors.New("forbidden")}, Bucket: "models"}).Ping(context.Background())
	require.ErrorContains(t, err, "forbidden")
}

func TestS3StorePresignPut(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}, nil
		}),
	})
	store := &S3Store{Client: client, Presigner: s3.NewPresignClient(client), Bucket: "models"}

	url, err := store.PresignPut(context.Background(), "models/abc-part.stl", 10*time.Minute)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:9000/models/models/abc-part.stl?"), url)
	require.Contains(t, url, "X-Amz-Signature=")
	require.Contains(t, url, "X-Amz-Expires=600")
}
