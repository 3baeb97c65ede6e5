package filestorage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects   map[string][]byte
	buckets   map[string]bool
	putErr    error
	lastPut   *s3.PutObjectInput
	createErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, buckets: map[string]bool{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.buckets[*in.Bucket] {
		return &s3.HeadBucketOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.buckets[*in.Bucket] = true
	return &s3.CreateBucketOutput{}, nil
}

type fakePresigner struct {
	gotExpires time.Duration
}

func (p *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	p.gotExpires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://minio.local/" + *in.Bucket + "/" + *in.Key + "?X-Amz-Signature=abc"}, nil
}

func newTestS3Storage() (*S3Storage, *fakeS3, *fakePresigner) {
	api := newFakeS3()
	pre := &fakePresigner{}
	return &S3Storage{client: api, presigner: pre, logger: zerolog.Nop()}, api, pre
}

func TestS3Storage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, api, _ := newTestS3Storage()

	err := store.Put(ctx, Object{Bucket: "timetables", Path: "s1-timetable.docx", ContentType: "application/x", Size: 5, Body: strings.NewReader("hello")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), aws.ToInt64(api.lastPut.ContentLength))
	assert.Equal(t, "application/x", aws.ToString(api.lastPut.ContentType))

	rc, err := store.Get(ctx, "timetables", "s1-timetable.docx")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, "timetables", "s1-timetable.docx"))
	_, err = store.Get(ctx, "timetables", "s1-timetable.docx")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestS3Storage_PutError(t *testing.T) {
	store, api, _ := newTestS3Storage()
	api.putErr = errors.New("503 slow down")

	err := store.Put(context.Background(), Object{Bucket: "enrollments", Path: "p", Body: strings.NewReader("x")})
	assert.ErrorContains(t, err, "503 slow down")
}

func TestS3Storage_SignedURL(t *testing.T) {
	store, _, pre := newTestS3Storage()

	url, err := store.SignedURL(context.Background(), "enrollments", "s1-enrollment.xlsx", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "enrollments/s1-enrollment.xlsx")
	assert.Equal(t, time.Hour, pre.gotExpires)
}

func TestS3Storage_EnsureBucket(t *testing.T) {
	ctx := context.Background()
	store, api, _ := newTestS3Storage()

	require.NoError(t, store.EnsureBucket(ctx, "timetables"))
	assert.True(t, api.buckets["timetables"])
	// existing bucket is a no-op
	require.NoError(t, store.EnsureBucket(ctx, "timetables"))

	api.createErr = &types.BucketAlreadyOwnedByYou{}
	require.NoError(t, store.EnsureBucket(ctx, "enrollments"))

	api.createErr = errors.New("access denied")
	assert.Error(t, store.EnsureBucket(ctx, "other"))
}

func TestNewS3Storage_AppliesConfig(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minioadmin", creds.AccessKeyID)
		return aws.Config{Region: lo.Region}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.New(s3.Options{Region: cfg.Region})
	}

	store, err := NewS3Storage(context.Background(), S3Config{
		Endpoint:     "http://127.0.0.1:9000",
		Region:       "eu-west-1",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UsePathStyle: true,
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Storage_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}
	_, err := NewS3Storage(context.Background(), S3Config{}, zerolog.Nop())
	assert.ErrorContains(t, err, "no region")
}
