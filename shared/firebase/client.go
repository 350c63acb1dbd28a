package firebase

import (
	"context"
	"fmt"
	"log/slog"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config holds Firebase Admin SDK configuration
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// Client verifies ID tokens and issues custom tokens through Firebase Auth
type Client struct {
	auth   *auth.Client
	logger *slog.Logger
}

// NewClient initializes the Firebase app and its Auth client.
// An empty CredentialsFile falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	var appConfig *fb.Config
	if config.ProjectID != "" {
		appConfig = &fb.Config{ProjectID: config.ProjectID}
	}

	app, err := fb.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	logger.Info("Firebase auth client initialized",
		slog.String("project_id", config.ProjectID),
	)

	return &Client{auth: authClient, logger: logger}, nil
}

// VerifyIDToken returns the uid carried by a valid ID token
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := c.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("failed to verify id token: %w", err)
	}
	return token.UID, nil
}

// LookupUser fails when uid is unknown to Firebase
func (c *Client) LookupUser(ctx context.Context, uid string) error {
	if _, err := c.auth.GetUser(ctx, uid); err != nil {
		return fmt.Errorf("failed to get firebase user: %w", err)
	}
	return nil
}

// CustomToken mints a custom sign-in token for uid
func (c *Client) CustomToken(ctx context.Context, uid string) (string, error) {
	token, err := c.auth.CustomToken(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("failed to create custom token: %w", err)
	}
	return token, nil
}
