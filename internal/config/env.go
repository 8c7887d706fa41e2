package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Credential environment variables.
const (
	EnvLinearToken       = "LINEAR_API_TOKEN"
	EnvJiraToken         = "JIRA_API_TOKEN"
	EnvJiraUsername      = "JIRA_USERNAME"
	EnvJiraHost          = "JIRA_HOST"
	EnvBitbucketPassword = "BITBUCKET_APP_PASSWORD"
	EnvBitbucketUsername = "BITBUCKET_USERNAME"
)

// Env looks up credentials in a project .env file, then the process
// environment.
type Env struct {
	dotenv map[string]string
	lookup func(string) (string, bool)
}

// LoadEnv reads <root>/.env if present. lookup is the process environment
// and defaults to os.LookupEnv.
func LoadEnv(root string, lookup func(string) (string, bool)) (*Env, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := &Env{lookup: lookup}

	path := filepath.Join(root, ".env")
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return env, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	env.dotenv = values
	return env, nil
}

// Get returns the value of key, or "".
func (e *Env) Get(key string) string {
	if v, ok := e.dotenv[key]; ok && v != "" {
		return v
	}
	if e.lookup != nil {
		if v, ok := e.lookup(key); ok {
			return v
		}
	}
	return ""
}

// ApplyEnv fills credentials that no settings layer provided.
func ApplyEnv(s Settings, env *Env) Settings {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = env.Get(key)
		}
	}
	fill(&s.IssueManagement.Linear.APIToken, EnvLinearToken)
	fill(&s.IssueManagement.Jira.APIToken, EnvJiraToken)
	fill(&s.IssueManagement.Jira.Username, EnvJiraUsername)
	fill(&s.IssueManagement.Jira.Host, EnvJiraHost)
	fill(&s.VersionControl.Bitbucket.AppPassword, EnvBitbucketPassword)
	fill(&s.VersionControl.Bitbucket.Username, EnvBitbucketUsername)
	return s
}
