package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// SessionIdentity is the bundle of browser-fingerprint parameters one
// session presents to the remote source: user-agent, viewport, an isolated
// profile directory, and a dedicated debugging port.
type SessionIdentity struct {
	UserAgent  string `json:"user_agent"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Token      string `json:"token"`
	ProfileDir string `json:"profile_dir"`
	DebugPort  int    `json:"debug_port"`
}

// identityPoolSize is the number of precomputed identities.
const identityPoolSize = 20

func userAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 11.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

func screenSizes() [][2]int {
	return [][2]int{
		{1920, 1080},
		{1366, 768},
		{1440, 900},
		{1536, 864},
		{1280, 720},
	}
}

// IdentityPool hands out session identities round-robin from a fixed
// ordered pool. The rotation order is deterministic: identity i pairs
// user-agent i mod 5 with viewport i mod 5.
type IdentityPool struct {
	mu         sync.Mutex
	identities []SessionIdentity
	counter    int
}

// NewIdentityPool precomputes the identity pool. Profile directories are
// created under baseDir; an empty baseDir uses the system temp directory.
func NewIdentityPool(baseDir string) *IdentityPool {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "normcheck-profiles")
	}

	agents := userAgents()
	sizes := screenSizes()

	identities := make([]SessionIdentity, 0, identityPoolSize)
	for i := 0; i < identityPoolSize; i++ {
		token := uuid.NewString()
		identities = append(identities, SessionIdentity{
			UserAgent:  agents[i%len(agents)],
			Width:      sizes[i%len(sizes)][0],
			Height:     sizes[i%len(sizes)][1],
			Token:      token,
			ProfileDir: filepath.Join(baseDir, fmt.Sprintf("profile-%02d-%s", i, token[:8])),
			// One port per identity: concurrent sessions drawn from any two
			// pool positions must never share a debugging endpoint.
			DebugPort: 9222 + i,
		})
	}

	return &IdentityPool{identities: identities}
}

// Next returns the next identity in round-robin order.
func (p *IdentityPool) Next() SessionIdentity {
	p.mu.Lock()
	defer p.mu.Unlock()

	identity := p.identities[p.counter%len(p.identities)]
	p.counter++

	return identity
}

// Skip advances the rotation counter by n, forcing the next identity to be
// drawn from a distant pool position. Used to break fingerprint correlation
// after a fixed number of searches.
func (p *IdentityPool) Skip(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counter = (p.counter + n) % len(p.identities)
}

// Size returns the pool size.
func (p *IdentityPool) Size() int {
	return len(p.identities)
}
