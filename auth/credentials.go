package auth

import "github.com/quantadb/quanta-go/dberr"

// Credentials identify a database user. Immutable once constructed, held
// only in memory. At least one authentication method must be present:
// password, client certificate or a pre-issued static token.
type Credentials struct {
	Username    string
	Password    string
	Certificate []byte
	StaticToken string
}

// NewPasswordCredentials builds username/password credentials.
func NewPasswordCredentials(username, password string) Credentials {
	return Credentials{Username: username, Password: password}
}

// NewTokenCredentials builds credentials from a pre-issued token.
func NewTokenCredentials(username, token string) Credentials {
	return Credentials{Username: username, StaticToken: token}
}

// NewCertificateCredentials builds certificate-based credentials.
func NewCertificateCredentials(username string, certificate []byte) Credentials {
	return Credentials{Username: username, Certificate: certificate}
}

// Validate checks that the credentials are usable.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return dberr.InvalidCredentials()
	}
	if c.Password == "" && len(c.Certificate) == 0 && c.StaticToken == "" {
		return dberr.InvalidCredentials()
	}
	return nil
}
