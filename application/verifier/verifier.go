// Package verifier implements the network service relying sites ask
// whether an assertion bundle proves an email address to them.
package verifier

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rodneysullivan/browserid/application"
	"github.com/rodneysullivan/browserid/crypto/sign"
	"github.com/rodneysullivan/browserid/protocol"
	"github.com/rodneysullivan/browserid/protocol/assertion"
)

// A Verifier answers verification requests against a trust root and a
// set of identity providers. Certificates issued by a configured
// identity provider are checked against that provider's key and may
// only certify addresses of its domain; every other chain must start
// at the trust root.
type Verifier struct {
	*application.ServerBase

	trustRoot sign.PublicKey
	issuers   map[string]sign.PublicKey
	clock     protocol.Clock
	metrics   *Metrics

	metricsServer *http.Server
}

// New creates a verifier from conf. The verifier does not listen until
// Run is called.
func New(conf *Config) (*Verifier, error) {
	sb, err := application.NewServerBase(conf.CommonConfig, "Listen")
	if err != nil {
		return nil, err
	}
	v := &Verifier{
		ServerBase: sb,
		clock:      protocol.SystemClock{},
		metrics:    NewMetrics(),
	}
	v.setRoots(conf)
	return v, nil
}

func (v *Verifier) setRoots(conf *Config) {
	v.trustRoot = conf.TrustRoot
	v.issuers = make(map[string]sign.PublicKey, len(conf.Issuers))
	for _, iss := range conf.Issuers {
		v.issuers[strings.ToLower(iss.Domain)] = iss.PublicKey
	}
}

// SetClock replaces the verifier's source of "now".
func (v *Verifier) SetClock(clock protocol.Clock) {
	v.clock = clock
}

// Metrics returns the verifier's outcome counters.
func (v *Verifier) Metrics() *Metrics {
	return v.metrics
}

// Run starts listening at every address, serves the metrics endpoint if
// metricsAddr is set, and reloads the keys on SIGUSR2.
func (v *Verifier) Run(addrs []*application.ServerAddress, metricsAddr string) error {
	for _, addr := range addrs {
		if err := v.ListenAndHandle(addr, v.HandleRequest); err != nil {
			v.ServerBase.Shutdown()
			return err
		}
	}
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", v.metrics.Handler())
		v.metricsServer = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		v.RunInBackground(func() {
			if err := v.metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				v.Logger().Error(err.Error(), "address", metricsAddr)
			}
		})
	}
	v.RunInBackground(func() {
		v.HotReload(v.reload)
	})
	return nil
}

// reload is called under the server base's write lock.
func (v *Verifier) reload() {
	path, encoding := v.ConfigInfo()
	var conf Config
	if err := conf.Load(path, encoding); err != nil {
		v.Logger().Error(err.Error(), "config", path)
		return
	}
	v.setRoots(&conf)
	v.Logger().Info("Reloaded keys", "config", path,
		"trust_root", conf.TrustRoot.Fingerprint(),
		"issuers", len(conf.Issuers))
}

// HandleRequest verifies req at the verifier's current time and counts
// the outcome.
func (v *Verifier) HandleRequest(req *application.Request) *application.Response {
	id := uuid.NewString()
	res, err := v.Verify(req.Assertion, req.Audience)
	v.metrics.Observe(err)
	if err != nil {
		v.Logger().Warn("Verification failed", "request", id,
			"audience", req.Audience, "reason", protocol.ReasonOf(err))
		return application.NewErrorResponse(err)
	}
	v.Logger().Info("Verified", "request", id,
		"email", res.Email, "audience", res.Audience, "issuer", res.Issuer)
	return application.NewSuccessResponse(res)
}

// Verify decodes encoded and verifies it for audience at the verifier's
// current time.
func (v *Verifier) Verify(encoded, audience string) (*assertion.Result, error) {
	b, err := protocol.DecodeBundle(encoded)
	if err != nil {
		return nil, err
	}
	root := v.trustRoot
	first := b.Certificates[0]
	if idp, ok := v.issuers[strings.ToLower(first.Issuer)]; ok {
		root = idp
		subject := b.Subject()
		if subject == nil || !inDomain(subject.Principal, first.Issuer) {
			return nil, protocol.ErrPrincipalMismatch
		}
	}
	return assertion.Verify(b, root, audience, v.clock.Now())
}

func inDomain(email, domain string) bool {
	at := strings.LastIndexByte(email, '@')
	return at >= 0 && strings.EqualFold(email[at+1:], domain)
}

// Shutdown stops the metrics endpoint and the listeners.
func (v *Verifier) Shutdown() error {
	if v.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		v.metricsServer.Shutdown(ctx)
	}
	return v.ServerBase.Shutdown()
}
