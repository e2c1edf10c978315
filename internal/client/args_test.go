package client

import (
	"errors"
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	cases := []struct {
		name string
		argv []string
		want Args
		err  error
	}{
		{"valid", []string{"127.0.0.1", "8080", "lain"}, Args{IP: "127.0.0.1", Port: 8080, Name: "lain"}, nil},
		{"ipv6", []string{"::1", "1", "x"}, Args{IP: "::1", Port: 1, Name: "x"}, nil},
		{"missing name", []string{"127.0.0.1", "8080"}, Args{}, ErrUsage},
		{"extra arg", []string{"127.0.0.1", "8080", "a", "b"}, Args{}, ErrUsage},
		{"bad ip", []string{"localhost", "8080", "a"}, Args{}, ErrInvalidAddress},
		{"port not a number", []string{"127.0.0.1", "80a", "a"}, Args{}, ErrInvalidPort},
		{"negative port", []string{"127.0.0.1", "-1", "a"}, Args{}, ErrInvalidPort},
		{"port zero", []string{"127.0.0.1", "0", "a"}, Args{}, ErrInvalidPort},
		{"port too large", []string{"127.0.0.1", "10001", "a"}, Args{}, ErrInvalidPort},
		{"empty name", []string{"127.0.0.1", "8080", ""}, Args{}, ErrNameEmpty},
		{"long name", []string{"127.0.0.1", "8080", strings.Repeat("n", 31)}, Args{}, ErrNameTooLong},
	}
	for _, c := range cases {
		got, err := ParseArgs(c.argv)
		if !errors.Is(err, c.err) {
			t.Errorf("%s: error %v, want %v", c.name, err, c.err)
			continue
		}
		if got != c.want {
			t.Errorf("%s: got %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestArgs_Address(t *testing.T) {
	if got := (Args{IP: "::1", Port: 8080}).Address(); got != "[::1]:8080" {
		t.Fatalf("unexpected address %q", got)
	}
}
