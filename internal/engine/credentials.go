package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// CredentialProvider holds tenants' current database credentials in
// process memory only. A credential is set at successful login, cleared
// at logout, and never written to durable storage.
type CredentialProvider struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewCredentialProvider creates an empty CredentialProvider.
func NewCredentialProvider() *CredentialProvider {
	return &CredentialProvider{creds: make(map[string]string)}
}

// Set stores the tenant's current credential.
func (p *CredentialProvider) Set(tenant, credential string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds[tenant] = credential
}

// Get returns the tenant's credential, if one is available.
func (p *CredentialProvider) Get(tenant string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.creds[tenant]
	return c, ok
}

// Clear removes the tenant's credential (logout).
func (p *CredentialProvider) Clear(tenant string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.creds, tenant)
}

// Reset drops every credential (process-wide credential reset).
func (p *CredentialProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = make(map[string]string)
}

// Fingerprint derives an opaque cache key from a credential. Connection
// caches key on the fingerprint so a changed credential forces a fresh
// connection without the raw credential appearing in any key or log.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
