package client

import (
	"fmt"
	"net"
	"strconv"
)

const (
	MaxNameLen = 30
	MaxPort    = 10000
)

// Args are the positional arguments of the client: <IP> <PORT> <NAME>.
type Args struct {
	IP   string
	Port int
	Name string
}

func (a Args) Address() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(a.Port))
}

func ParseArgs(argv []string) (Args, error) {
	if len(argv) != 3 {
		return Args{}, ErrUsage
	}
	ip, portStr, name := argv[0], argv[1], argv[2]

	if net.ParseIP(ip) == nil {
		return Args{}, fmt.Errorf("%w: %q", ErrInvalidAddress, ip)
	}

	if portStr == "" {
		return Args{}, fmt.Errorf("%w: empty", ErrInvalidPort)
	}
	for _, r := range portStr {
		if r < '0' || r > '9' {
			return Args{}, fmt.Errorf("%w: %q is not a number", ErrInvalidPort, portStr)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > MaxPort {
		return Args{}, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidPort, MaxPort)
	}

	if name == "" {
		return Args{}, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return Args{}, fmt.Errorf("%w: at most %d characters", ErrNameTooLong, MaxNameLen)
	}

	return Args{IP: ip, Port: port, Name: name}, nil
}
