// Package config resolves trackmove settings from the environment and an
// optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const dbFileName = "snapshot.db"

// Environment keys.
const (
	KeyPath = "TRACKMOVE_PATH"

	KeySourceHost  = "SOURCE_JIRA_HOST"
	KeySourceEmail = "SOURCE_JIRA_EMAIL"
	KeySourceToken = "SOURCE_JIRA_API_TOKEN"
	KeyTargetHost  = "TARGET_JIRA_HOST"
	KeyTargetEmail = "TARGET_JIRA_EMAIL"
	KeyTargetToken = "TARGET_JIRA_API_TOKEN"

	KeyBlobBackend     = "BLOB_BACKEND"
	KeyBlobDir         = "BLOB_DIR"
	KeyS3Bucket        = "AWS_S3_BUCKET"
	KeyS3Region        = "AWS_REGION"
	KeyS3AccessKeyID   = "AWS_ACCESS_KEY_ID"
	KeyS3SecretKey     = "AWS_SECRET_ACCESS_KEY"
	KeyS3SessionToken  = "AWS_SESSION_TOKEN"
	KeySourceJQL       = "SOURCE_JQL"
	KeyTargetProject   = "TARGET_PROJECT"
	KeySourceKeyField  = "TARGET_SOURCE_KEY_FIELD"
	KeyDefaultReporter = "TARGET_DEFAULT_REPORTER"
	KeyTransitionIssue = "TARGET_TRANSITION_ISSUE"
)

// Blob backends.
const (
	BackendS3 = "s3"
	BackendFS = "fs"
)

var defaults = map[string]string{
	KeyBlobBackend:     BackendS3,
	KeyS3Region:        "us-east-2",
	KeySourceJQL:       `project = "SOURCE" ORDER BY key ASC`,
	KeyTargetProject:   "TARGET",
	KeySourceKeyField:  "customfield_13582",
	KeyDefaultReporter: "6154bc5d9cdb9300722effa1",
	KeyTransitionIssue: "TARGET-1",
}

// Jira holds the connection settings for one Jira site.
type Jira struct {
	Host     string
	Email    string
	APIToken string
}

// Blob holds object storage settings.
type Blob struct {
	Backend         string
	Dir             string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Migration holds the fixed parameters of the source to target mapping.
type Migration struct {
	SourceJQL       string
	TargetProject   string
	SourceKeyField  string
	DefaultReporter string
	TransitionIssue string
}

// Config holds resolved configuration.
type Config struct {
	Dir       string // resolved snapshot directory
	DBPath    string // full path to snapshot.db
	EnvVarSet bool   // whether TRACKMOVE_PATH was used
	EnvFile   string // dotenv file that was read, if any

	Source    Jira
	Target    Jira
	Blob      Blob
	Migration Migration
}

// Need names the groups of settings a command depends on.
type Need int

const (
	NeedSource Need = 1 << iota
	NeedTarget
	NeedBlob
)

// ErrMissing is wrapped by the error Validate returns.
var ErrMissing = errors.New("missing required configuration")

// MissingError lists every required key that has no value.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissing, strings.Join(e.Keys, ", "))
}

func (e *MissingError) Unwrap() error { return ErrMissing }

// Load reads configuration from the environment. When envFile is set it must
// exist; otherwise a .env file in the working directory is read if present.
// Environment variables take precedence over dotenv values.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	explicit := envFile != ""
	if !explicit {
		envFile = filepath.Join(cwd, ".env")
	}
	read := ""
	if _, statErr := os.Stat(envFile); statErr == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		read = envFile
	} else if explicit {
		return nil, fmt.Errorf("env file %s: %w", envFile, statErr)
	}

	get := func(key string) string { return strings.TrimSpace(v.GetString(key)) }

	cfg := &Config{
		EnvFile: read,
		Source: Jira{
			Host:     get(KeySourceHost),
			Email:    get(KeySourceEmail),
			APIToken: get(KeySourceToken),
		},
		Target: Jira{
			Host:     get(KeyTargetHost),
			Email:    get(KeyTargetEmail),
			APIToken: get(KeyTargetToken),
		},
		Blob: Blob{
			Backend:         strings.ToLower(get(KeyBlobBackend)),
			Dir:             get(KeyBlobDir),
			Bucket:          get(KeyS3Bucket),
			Region:          get(KeyS3Region),
			AccessKeyID:     get(KeyS3AccessKeyID),
			SecretAccessKey: get(KeyS3SecretKey),
			SessionToken:    get(KeyS3SessionToken),
		},
		Migration: Migration{
			SourceJQL:       get(KeySourceJQL),
			TargetProject:   get(KeyTargetProject),
			SourceKeyField:  get(KeySourceKeyField),
			DefaultReporter: get(KeyDefaultReporter),
			TransitionIssue: get(KeyTransitionIssue),
		},
	}

	if p := get(KeyPath); p != "" {
		cfg.Dir = p
		cfg.EnvVarSet = true
	} else {
		cfg.Dir = filepath.Join(cwd, ".trackmove")
	}
	cfg.DBPath = filepath.Join(cfg.Dir, dbFileName)

	return cfg, nil
}

// Validate checks that every key required by need is set. The returned
// error is a *MissingError naming all absent keys.
func (c *Config) Validate(need Need) error {
	var missing []string
	check := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}

	if need&NeedSource != 0 {
		check(KeySourceHost, c.Source.Host)
		check(KeySourceEmail, c.Source.Email)
		check(KeySourceToken, c.Source.APIToken)
	}
	if need&NeedTarget != 0 {
		check(KeyTargetHost, c.Target.Host)
		check(KeyTargetEmail, c.Target.Email)
		check(KeyTargetToken, c.Target.APIToken)
		check(KeyTargetProject, c.Migration.TargetProject)
		check(KeySourceKeyField, c.Migration.SourceKeyField)
	}
	if need&NeedBlob != 0 {
		switch c.Blob.Backend {
		case BackendFS:
			check(KeyBlobDir, c.Blob.Dir)
		case BackendS3:
			check(KeyS3Bucket, c.Blob.Bucket)
			check(KeyS3Region, c.Blob.Region)
			check(KeyS3AccessKeyID, c.Blob.AccessKeyID)
			check(KeyS3SecretKey, c.Blob.SecretAccessKey)
		default:
			return fmt.Errorf("invalid %s %q: must be %q or %q", KeyBlobBackend, c.Blob.Backend, BackendS3, BackendFS)
		}
	}

	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

// Exists checks if the snapshot directory and DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	if _, err := os.Stat(c.Dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := os.Stat(c.DBPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
