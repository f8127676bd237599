// Package config loads run configuration from the environment, with
// Smartling credentials optionally resolved from AWS Secrets Manager at
// cold start.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	sourceURLEnv       = "SOURCE_URL"
	destinationURLsEnv = "DESTINATION_BUCKET_URLS"
	targetLanguagesEnv = "TARGET_LANGUAGES"
	concurrencyEnv     = "CONCURRENCY_LIMIT"
	forceEnv           = "FORCE_RETRANSLATE"
	logLevelEnv        = "LOG_LEVEL"
	secretsARNEnv      = "SECRETS_ARN"
	userIDEnv          = "SMARTLING_USER_ID"
	userSecretEnv      = "SMARTLING_USER_SECRET"
	accountUIDEnv      = "SMARTLING_ACCOUNT_UID"

	defaultConcurrency = 20
)

// Smartling holds the remote translation service credentials.
type Smartling struct {
	UserID     string
	UserSecret string
	AccountUID string
}

// Config holds all settings for the translator Lambda.
type Config struct {
	SourceURL        string
	DestinationURLs  []string
	TargetLanguages  []string
	ConcurrencyLimit int
	ForceRetranslate bool
	LogLevel         string
	SecretsARN       string
	Smartling        Smartling
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		SourceURL:        os.Getenv(sourceURLEnv),
		DestinationURLs:  splitList(os.Getenv(destinationURLsEnv)),
		TargetLanguages:  splitList(os.Getenv(targetLanguagesEnv)),
		ConcurrencyLimit: intOrDefault(os.Getenv(concurrencyEnv), defaultConcurrency),
		ForceRetranslate: boolValue(os.Getenv(forceEnv)),
		LogLevel:         os.Getenv(logLevelEnv),
		SecretsARN:       os.Getenv(secretsARNEnv),
		Smartling: Smartling{
			UserID:     os.Getenv(userIDEnv),
			UserSecret: os.Getenv(userSecretEnv),
			AccountUID: os.Getenv(accountUIDEnv),
		},
	}
}

// secretPayload is the JSON shape of the Secrets Manager secret.
type secretPayload struct {
	UserID     string `json:"smartling_user_id"`
	UserSecret string `json:"smartling_user_secret"`
	AccountUID string `json:"smartling_account_uid"`
}

// ResolveSecrets fills in Smartling credentials from Secrets Manager when
// SECRETS_ARN is set. Values already present in the environment win over
// the secret. Called once per cold start.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	if c.SecretsARN == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &c.SecretsARN,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch secret %s: %w", c.SecretsARN, err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", c.SecretsARN)
	}

	var payload secretPayload
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return fmt.Errorf("failed to parse secret %s: %w", c.SecretsARN, err)
	}

	if c.Smartling.UserID == "" {
		c.Smartling.UserID = payload.UserID
	}
	if c.Smartling.UserSecret == "" {
		c.Smartling.UserSecret = payload.UserSecret
	}
	if c.Smartling.AccountUID == "" {
		c.Smartling.AccountUID = payload.AccountUID
	}

	return nil
}

// Validate checks the settings a run cannot proceed without.
func (c Config) Validate() error {
	if len(c.DestinationURLs) == 0 {
		return fmt.Errorf("%s is required", destinationURLsEnv)
	}
	if len(c.TargetLanguages) == 0 {
		return fmt.Errorf("%s is required", targetLanguagesEnv)
	}
	if c.Smartling.UserID == "" || c.Smartling.UserSecret == "" {
		return fmt.Errorf("Smartling credentials are not configured")
	}
	return nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func intOrDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func boolValue(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}
