package verifier

import (
	"github.com/rodneysullivan/browserid/application"
	"github.com/rodneysullivan/browserid/crypto/sign"
	"github.com/rodneysullivan/browserid/utils"
)

// An Issuer is an identity provider trusted to certify the addresses
// of its own email domain, and only those.
type Issuer struct {
	Domain     string `toml:"domain"`
	PubKeyPath string `toml:"pubkey_path"`

	PublicKey sign.PublicKey `toml:"-"`
}

// A Config contains the verifier's configuration: the addresses it
// listens on, the path to the trust root's public key and the actual
// key parsed from that file, the identity providers it accepts
// certificates from, and the optional address of the metrics endpoint.
type Config struct {
	*application.CommonConfig

	Addresses []*application.ServerAddress `toml:"addresses"`

	TrustRootPath string         `toml:"trust_root_path"`
	TrustRoot     sign.PublicKey `toml:"-"`

	Issuers []*Issuer `toml:"issuers,omitempty"`

	MetricsAddress string `toml:"metrics_address,omitempty"`
}

var _ application.AppConfig = (*Config)(nil)

// NewConfig initializes a new verifier configuration at the given file
// path, with the given config encoding, listening addresses, logger
// configuration and trust root public key path.
func NewConfig(file, encoding string, addrs []*application.ServerAddress,
	logConfig *application.LoggerConfig, trustRootPath string) *Config {
	var conf = Config{
		CommonConfig:  application.NewCommonConfig(file, encoding, logConfig),
		Addresses:     addrs,
		TrustRootPath: trustRootPath,
	}

	return &conf
}

// Load initializes a verifier's configuration from the given file
// using the given encoding. It reads the trust root and every issuer's
// public key, and resolves the TLS and log file paths against the
// config file location.
func (conf *Config) Load(file, encoding string) error {
	conf.CommonConfig = application.NewCommonConfig(file, encoding, nil)
	if err := conf.GetLoader().Decode(conf); err != nil {
		return err
	}
	conf.Path = file
	conf.Encoding = encoding

	root, err := application.LoadSigningPubKey(conf.TrustRootPath, file)
	if err != nil {
		return err
	}
	conf.TrustRoot = root

	for _, iss := range conf.Issuers {
		pk, err := application.LoadSigningPubKey(iss.PubKeyPath, file)
		if err != nil {
			return err
		}
		iss.PublicKey = pk
	}

	// also update path for TLS cert files
	for _, addr := range conf.Addresses {
		if addr.TLSCertPath != "" {
			addr.TLSCertPath = utils.ResolvePath(addr.TLSCertPath, file)
		}
		if addr.TLSKeyPath != "" {
			addr.TLSKeyPath = utils.ResolvePath(addr.TLSKeyPath, file)
		}
	}
	conf.ResolveLoggerPath()

	return nil
}

// Save writes a verifier's configuration.
func (conf *Config) Save() error {
	return conf.GetLoader().Encode(conf)
}

// GetPath returns the verifier's configuration file path.
func (conf *Config) GetPath() string {
	return conf.Path
}
