package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Credentials holds the shop API credentials. An empty APIKey means
// anonymous access.
type Credentials struct {
	// APIKey is sent as a bearer token when non-empty.
	APIKey string `json:"api_key"`
}

// FetchCredentials is a function type that retrieves API credentials.
// It allows for different retrieval strategies (static, environment
// variables, a secret manager).
type FetchCredentials func() (Credentials, error)

// lazyCredentials resolves credentials at most once, on first use.
func lazyCredentials(fetch FetchCredentials) func() (Credentials, error) {
	return sync.OnceValues(func() (Credentials, error) {
		return fetch()
	})
}

// NoCredentials returns a FetchCredentials function for anonymous access.
func NoCredentials() FetchCredentials {
	return func() (Credentials, error) {
		return Credentials{}, nil
	}
}

// StaticCredentials returns a FetchCredentials function that provides a
// fixed key. This is useful for testing or when the key is known at
// startup.
func StaticCredentials(apiKey string) FetchCredentials {
	return func() (Credentials, error) {
		return Credentials{APIKey: apiKey}, nil
	}
}

// EnvCredentials returns a FetchCredentials function reading the
// CATALOG_API_KEY environment variable. An unset variable yields
// anonymous access rather than an error.
func EnvCredentials() FetchCredentials {
	return func() (Credentials, error) {
		return Credentials{APIKey: os.Getenv("CATALOG_API_KEY")}, nil
	}
}

// SecretsManagerClient defines the interface for AWS Secrets Manager
// operations.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSCredentialsFromARN returns a FetchCredentials function that
// retrieves the API key from AWS Secrets Manager using the provided
// secret ARN. The secret is expected to contain JSON with an api_key
// field.
func AWSCredentialsFromARN(ctx context.Context, client SecretsManagerClient, secretArn string) FetchCredentials {
	return func() (Credentials, error) {
		input := &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretArn),
		}

		result, err := client.GetSecretValue(ctx, input)
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to get secret from AWS Secrets Manager with ARN %s: %w", secretArn, err)
		}

		if result.SecretString == nil {
			return Credentials{}, fmt.Errorf("secret with ARN %s has no string value", secretArn)
		}

		var creds Credentials
		if err := json.Unmarshal([]byte(aws.ToString(result.SecretString)), &creds); err != nil {
			return Credentials{}, fmt.Errorf("failed to unmarshal secret JSON from ARN %s: %w", secretArn, err)
		}

		return creds, nil
	}
}
