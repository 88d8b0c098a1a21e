package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Mode(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  CredentialMode
	}{
		{
			name:  "static token wins",
			creds: Credentials{StaticToken: "tok", Email: "a@b.com", APIKey: "k"},
			want:  ModeStatic,
		},
		{
			name:  "email and key mean dynamic",
			creds: Credentials{Email: "a@b.com", APIKey: "k"},
			want:  ModeDynamic,
		},
		{
			name:  "whitespace token is not static",
			creds: Credentials{StaticToken: "   ", Email: "a@b.com", APIKey: "k"},
			want:  ModeDynamic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.Mode())
		})
	}
}

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{name: "static only", creds: Credentials{StaticToken: "tok"}},
		{name: "email and key", creds: Credentials{Email: "a@b.com", APIKey: "k"}},
		{name: "nothing", creds: Credentials{}, wantErr: true},
		{name: "email without key", creds: Credentials{Email: "a@b.com"}, wantErr: true},
		{name: "key without email", creds: Credentials{APIKey: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr {
				require.Error(t, err)
				var ce *ConfigurationError
				assert.ErrorAs(t, err, &ce)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCredentials_BasicAuth(t *testing.T) {
	creds := Credentials{Email: "a@b.com", APIKey: "k"}
	assert.Equal(t, "Basic YUBiLmNvbTpr", creds.BasicAuth())
}

func TestCredentialMode_String(t *testing.T) {
	assert.Equal(t, "static", ModeStatic.String())
	assert.Equal(t, "dynamic", ModeDynamic.String())
}
