package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{ETag: aws.String(`"abc123"`)}, nil
}

func TestArchiveUploadsSnapshot(t *testing.T) {
	putter := &fakePutter{}
	uploader := &cloudflareR2Uploader{s3Client: putter, bucketName: "brackets", publicBaseURL: "https://cdn.example.com/files"}
	archive := NewBracketArchive(uploader)
	archive.newID = func() string { return "fixed" }

	location, err := archive.Archive(context.Background(), 42, map[string]int{"champion_id": 7})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/files/brackets/event-42/fixed.json", location)
	assert.Equal(t, "brackets/event-42/fixed.json", aws.ToString(putter.input.Key))
	assert.Equal(t, "brackets", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))
	assert.JSONEq(t, `{"champion_id":7}`, string(putter.body))
}

func TestArchivePropagatesUploadErrors(t *testing.T) {
	uploader := &cloudflareR2Uploader{s3Client: &fakePutter{err: errors.New("denied")}, bucketName: "b", publicBaseURL: "https://x"}
	_, err := NewBracketArchive(uploader).Archive(context.Background(), 1, struct{}{})
	assert.ErrorContains(t, err, "denied")
}

func TestUploaderRequiresFullConfig(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "a"})
	assert.ErrorIs(t, err, ErrR2NotConfigured)
}

func TestPublicURL(t *testing.T) {
	u := &cloudflareR2Uploader{publicBaseURL: "https://cdn.example.com/"}
	assert.Equal(t, "https://cdn.example.com/a/b.json", u.PublicURL("/a/b.json"))
	assert.Equal(t, "", u.PublicURL(""))
}
