// Package secrets decrypts KMS protected configuration such as the Slack
// signing secret.
package secrets

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/cloudkms/v1"
	"google.golang.org/api/option"
)

// KeyName builds the resource name of a Cloud KMS crypto key.
func KeyName(projectID, location, keyRing, key string) string {
	return fmt.Sprintf("projects/%s/locations/%s/keyRings/%s/cryptoKeys/%s",
		projectID, location, keyRing, key)
}

type Decrypter struct {
	keyName string
	service *cloudkms.Service
}

// NewDecrypter returns a Decrypter for keyName. endpoint and httpClient are
// optional and point the client at a mock KMS when running locally.
func NewDecrypter(ctx context.Context, keyName string, endpoint string, httpClient *http.Client) (*Decrypter, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		opts = append(opts, option.WithEndpoint(endpoint), option.WithAPIKey("mockAPIKey"))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	service, err := cloudkms.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("Error creating cloudKMS.service: %v", err)
	}
	return &Decrypter{keyName: keyName, service: service}, nil
}

// Decrypt sends the base64 ciphertext to KMS and returns the plaintext.
func (d *Decrypter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	req := &cloudkms.DecryptRequest{
		Ciphertext: strings.TrimSpace(ciphertext),
	}
	resp, err := d.service.Projects.Locations.KeyRings.CryptoKeys.Decrypt(d.keyName, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("decrypting with %s: %w", d.keyName, err)
	}
	plaintext, err := base64.StdEncoding.DecodeString(resp.Plaintext)
	if err != nil {
		return "", fmt.Errorf("decoding plaintext from %s: %w", d.keyName, err)
	}
	return string(plaintext), nil
}
