// File: internal/services/ai/completer.go
package ai

// NewCompleter picks the proxy client when a proxy endpoint is configured and
// the direct gateway client otherwise.
func NewCompleter(config *Config, profiles ModeProfiles, logger Logger) (Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}
	if config.UsesProxy() {
		logger.Info("using completion proxy", "endpoint", config.ProxyURL)
		return NewProxyClient(config, logger), nil
	}
	logger.Info("using gateway directly", "base_url", config.GatewayBaseURL)
	return NewGatewayClient(config, profiles, logger), nil
}
