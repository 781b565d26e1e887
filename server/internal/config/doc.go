// Package config loads the pressline server configuration from config.yaml.
//
// Config fields:
//   - Server.HTTPPort          : port for the REST API, WebSocket hub and /metrics (default 8080)
//   - Server.Auth.Mode         : "apikey" or "none"
//   - Server.Auth.KeyEnv       : environment variable holding the expected API key
//   - Server.Auth.Header       : HTTP header name carrying the key (default "x-api-key")
//   - Server.Cache.TTL         : how long an unused report stays memoized (default 30m, 0 = forever)
//   - Server.BroadcastInterval : WebSocket re-broadcast period (default 5s)
//   - Server.MaxUploadBytes    : largest accepted upload body (default 32 MiB)
//   - Input.Path               : production log to analyse at startup (optional)
//   - Input.Watch              : re-analyse Input.Path whenever it changes (default true)
//   - Input.Comma, Input.Encoding : delimiter and text encoding of input files
//   - Alerts.Rules, Alerts.Webhooks : threshold rules over each new report
//
// Load(path) applies defaults before unmarshalling, then environment
// overrides (PRESSLINE_SERVER_HTTP_PORT, PRESSLINE_INPUT_PATH, ...), then
// validates.
//
// Watch(ctx, path, onChange) reloads the file whenever it is written and calls
// onChange with the new Config. A reload that fails to parse or validate is
// logged and the previous config stays active.
package config
