package baseline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sizewatch/internal/github"
)

func TestFileChannel_PutGet(t *testing.T) {
	c, err := NewFileChannel(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Get(ctx, mainKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Put(ctx, mainKey, []byte("one")))
	require.NoError(t, c.Put(ctx, mainKey, []byte("two")))
	got, err := c.Get(ctx, mainKey)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	other := Key{Branch: "master", Workflow: "release"}
	_, err = c.Get(ctx, other)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileChannel_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileChannel(dir)
	require.NoError(t, err)
	require.NoError(t, c.Put(context.Background(), mainKey, []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, HashKey(mainKey)+".json", entries[0].Name())
}

func TestFileChannel_ClearAndStats(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileChannel(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, mainKey, []byte("abc")))
	require.NoError(t, c.Put(ctx, Key{Branch: "main", Workflow: "ci"}, []byte("de")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Dir: dir, Entries: 2, TotalBytes: 5}, stats)

	removed, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
	stats, err = c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}

func TestFileChannel_StoreRoundTrip(t *testing.T) {
	c, err := NewFileChannel(t.TempDir())
	require.NoError(t, err)
	s := NewStore(c, nil)
	report := mustReport(t, `[{"name":"a.js","size":10}]`)
	require.NoError(t, s.Save(context.Background(), report, mainKey))

	got, ok := s.Load(context.Background(), mainKey)
	require.True(t, ok)
	assert.Equal(t, report.Entries(), got.Entries())
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "sizewatch"), dir)
}

func TestHashKey(t *testing.T) {
	a := HashKey(Key{Branch: "ab", Workflow: "c"})
	b := HashKey(Key{Branch: "a", Workflow: "bc"})
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

// fakeS3 is an in-memory ObjectAPI.
type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Channel(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{}}
	c := NewS3ChannelWithAPI(api, "bucket", "/baselines/")
	ctx := context.Background()

	assert.Equal(t, "baselines/master/ci/size-limit-results.json", c.ObjectKey(mainKey))

	_, err := c.Get(ctx, mainKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Put(ctx, mainKey, []byte("rec")))
	assert.Contains(t, api.objects, "bucket/baselines/master/ci/size-limit-results.json")

	got, err := c.Get(ctx, mainKey)
	require.NoError(t, err)
	assert.Equal(t, "rec", string(got))
}

func TestS3Channel_Errors(t *testing.T) {
	boom := errors.New("access denied")
	c := NewS3ChannelWithAPI(&fakeS3{err: boom}, "bucket", "")
	assert.Equal(t, "master/ci/size-limit-results.json", c.ObjectKey(mainKey))

	_, err := c.Get(context.Background(), mainKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Put(context.Background(), mainKey, nil), boom)
}

func TestNewS3Channel_RequiresBucket(t *testing.T) {
	_, err := NewS3Channel(context.Background(), S3Config{})
	assert.Error(t, err)
}

type fakeArtifacts struct {
	archives map[string][]byte // "<workflow>@<branch>" -> zip
	uploads  map[string][]byte // artifact name -> zip
	findErr  error
}

func (f *fakeArtifacts) LatestArtifact(_ context.Context, owner, repo, workflow, branch, name string) (github.Artifact, error) {
	if f.findErr != nil {
		return github.Artifact{}, f.findErr
	}
	if _, ok := f.archives[workflow+"@"+branch]; !ok || name != DefaultArtifactName {
		return github.Artifact{}, fmt.Errorf("none: %w", github.ErrNotFound)
	}
	return github.Artifact{ID: 1, Name: workflow + "@" + branch}, nil
}

func (f *fakeArtifacts) DownloadArtifact(_ context.Context, owner, repo string, id int64) ([]byte, error) {
	for _, a := range f.archives {
		return a, nil
	}
	return nil, github.ErrNotFound
}

func (f *fakeArtifacts) UploadArtifact(_ context.Context, name string, files []github.ArtifactFile) (int64, error) {
	archive, err := github.ZipFiles(files)
	if err != nil {
		return 0, err
	}
	f.uploads[name] = archive
	return 1, nil
}

func TestArtifactChannel_Get(t *testing.T) {
	archive, err := github.ZipFiles([]github.ArtifactFile{{Name: FileName, Data: []byte("rec")}})
	require.NoError(t, err)
	fake := &fakeArtifacts{archives: map[string][]byte{"ci.yml@master": archive}}
	c := &ArtifactChannel{Owner: "acme", Repo: "web", Finder: fake}

	got, err := c.Get(context.Background(), mainKey)
	require.NoError(t, err)
	assert.Equal(t, "rec", string(got))

	_, err = c.Get(context.Background(), Key{Branch: "develop", Workflow: "ci"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArtifactChannel_GetErrors(t *testing.T) {
	c := &ArtifactChannel{Finder: &fakeArtifacts{findErr: errors.New("403")}}
	_, err := c.Get(context.Background(), mainKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	archive, err := github.ZipFiles([]github.ArtifactFile{{Name: "other.json"}})
	require.NoError(t, err)
	c = &ArtifactChannel{Finder: &fakeArtifacts{archives: map[string][]byte{"ci.yml@master": archive}}}
	_, err = c.Get(context.Background(), mainKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestArtifactChannel_Put(t *testing.T) {
	fake := &fakeArtifacts{uploads: map[string][]byte{}}
	c := &ArtifactChannel{Uploader: fake}
	require.NoError(t, c.Put(context.Background(), mainKey, []byte("rec")))

	data, err := github.ReadZipFile(fake.uploads[DefaultArtifactName], FileName)
	require.NoError(t, err)
	assert.Equal(t, "rec", string(data))

	assert.Error(t, (&ArtifactChannel{}).Put(context.Background(), mainKey, nil))
}
