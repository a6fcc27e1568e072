package config

import (
	"net"
	"net/url"
	"os"
	"sync"
)

const dockerHostGateway = "host.docker.internal"

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv file which exists in all Docker containers.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

// resolveAddr rewrites a loopback host in "host:port" to the Docker host gateway.
func resolveAddr(addr string, inDocker bool) string {
	if !inDocker {
		return addr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil || !isLoopback(host) {
		return addr
	}
	return net.JoinHostPort(dockerHostGateway, port)
}

// resolveURL rewrites a loopback host in an absolute URL to the Docker host gateway.
func resolveURL(raw string, inDocker bool) string {
	if !inDocker {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || !isLoopback(u.Hostname()) {
		return raw
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(dockerHostGateway, port)
	} else {
		u.Host = dockerHostGateway
	}
	return u.String()
}

// ResolveForDocker points backend addresses that name the local machine at
// the Docker host when the portal itself runs in a container. It covers the
// remote API URL, the Redis address and the storage endpoint.
func (c *Config) ResolveForDocker() {
	inDocker := IsRunningInDocker()
	c.API.BaseURL = resolveURL(c.API.BaseURL, inDocker)
	c.Redis.Addr = resolveAddr(c.Redis.Addr, inDocker)
	if c.Storage.Endpoint != "" {
		c.Storage.Endpoint = resolveURL(c.Storage.Endpoint, inDocker)
	}
}
