package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	KeyPath, KeySourceHost, KeySourceEmail, KeySourceToken,
	KeyTargetHost, KeyTargetEmail, KeyTargetToken,
	KeyBlobBackend, KeyBlobDir, KeyS3Bucket, KeyS3Region, KeyS3AccessKeyID,
	KeyS3SecretKey, KeyS3SessionToken, KeySourceJQL, KeyTargetProject,
	KeySourceKeyField, KeyDefaultReporter, KeyTransitionIssue,
}

// isolate clears every trackmove key and runs the test from an empty
// directory so a developer's .env does not leak in.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ".trackmove"), cfg.Dir)
	assert.Equal(t, filepath.Join(dir, ".trackmove", "snapshot.db"), cfg.DBPath)
	assert.False(t, cfg.EnvVarSet)
	assert.Empty(t, cfg.EnvFile)
	assert.Equal(t, BackendS3, cfg.Blob.Backend)
	assert.Equal(t, "us-east-2", cfg.Blob.Region)
	assert.Equal(t, "TARGET", cfg.Migration.TargetProject)
	assert.Equal(t, "customfield_13582", cfg.Migration.SourceKeyField)
	assert.Equal(t, "6154bc5d9cdb9300722effa1", cfg.Migration.DefaultReporter)
	assert.Equal(t, "TARGET-1", cfg.Migration.TransitionIssue)
	assert.Equal(t, `project = "SOURCE" ORDER BY key ASC`, cfg.Migration.SourceJQL)
}

func TestLoadPathFromEnv(t *testing.T) {
	isolate(t)
	custom := filepath.Join(t.TempDir(), "snap")
	t.Setenv(KeyPath, custom)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, custom, cfg.Dir)
	assert.Equal(t, filepath.Join(custom, "snapshot.db"), cfg.DBPath)
	assert.True(t, cfg.EnvVarSet)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	content := "SOURCE_JIRA_HOST=source.atlassian.net\nSOURCE_JIRA_EMAIL=bot@example.com\nTARGET_PROJECT=DEST\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	t.Setenv(KeyTargetProject, "OVERRIDE")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".env"), cfg.EnvFile)
	assert.Equal(t, "source.atlassian.net", cfg.Source.Host)
	assert.Equal(t, "bot@example.com", cfg.Source.Email)
	assert.Equal(t, "OVERRIDE", cfg.Migration.TargetProject, "environment wins over dotenv")
}

func TestLoadExplicitEnvFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "prod.env")
	require.NoError(t, os.WriteFile(path, []byte("BLOB_BACKEND=FS\nBLOB_DIR=/tmp/blobs\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendFS, cfg.Blob.Backend)
	assert.Equal(t, "/tmp/blobs", cfg.Blob.Dir)
}

func TestValidate(t *testing.T) {
	t.Run("lists every missing key", func(t *testing.T) {
		cfg := &Config{Blob: Blob{Backend: BackendS3, Region: "us-east-2"}, Source: Jira{Host: "h"}}

		err := cfg.Validate(NeedSource | NeedBlob)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissing))

		var missing *MissingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{
			KeySourceEmail, KeySourceToken,
			KeyS3Bucket, KeyS3AccessKeyID, KeyS3SecretKey,
		}, missing.Keys)
	})

	t.Run("only checks what is needed", func(t *testing.T) {
		cfg := &Config{Blob: Blob{Backend: BackendFS, Dir: "/blobs"}}
		assert.NoError(t, cfg.Validate(NeedBlob))
		assert.NoError(t, cfg.Validate(0))
		assert.Error(t, cfg.Validate(NeedTarget))
	})

	t.Run("fs backend needs a directory", func(t *testing.T) {
		cfg := &Config{Blob: Blob{Backend: BackendFS}}
		var missing *MissingError
		require.ErrorAs(t, cfg.Validate(NeedBlob), &missing)
		assert.Equal(t, []string{KeyBlobDir}, missing.Keys)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &Config{Blob: Blob{Backend: "gcs"}}
		err := cfg.Validate(NeedBlob)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrMissing))
	})

	t.Run("target", func(t *testing.T) {
		cfg := &Config{
			Target:    Jira{Host: "h", Email: "e", APIToken: "t"},
			Migration: Migration{TargetProject: "TARGET", SourceKeyField: "customfield_1"},
		}
		assert.NoError(t, cfg.Validate(NeedTarget))
	})
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Dir: filepath.Join(dir, ".trackmove"), DBPath: filepath.Join(dir, ".trackmove", "snapshot.db")}

	ok, err := cfg.Exists()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(cfg.Dir, 0o755))
	require.NoError(t, os.WriteFile(cfg.DBPath, nil, 0o644))

	ok, err = cfg.Exists()
	require.NoError(t, err)
	assert.True(t, ok)
}
