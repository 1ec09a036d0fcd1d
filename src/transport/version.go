package transport

// Version is stamped at build time:
//
//	-X github.com/Easy-Infra-Ltd/easy-svg-guard/src/transport.Version=<tag>
var Version = "dev"
