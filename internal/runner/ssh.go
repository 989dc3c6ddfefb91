package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig describes how to reach a remote host.
type SSHConfig struct {
	Host string
	Port int
	User string

	// KeyFile is a path to a private key. Password is used when empty.
	KeyFile  string
	Password string

	// KnownHosts is the known_hosts file used to verify the host key.
	// InsecureIgnoreHostKey skips verification entirely.
	KnownHosts            string
	InsecureIgnoreHostKey bool

	DialTimeout time.Duration
}

// SSH runs commands on a remote host. Each Run opens a new session on a
// shared client connection.
type SSH struct {
	client *ssh.Client
	addr   string
}

// DialSSH connects to cfg.Host and authenticates.
func DialSSH(cfg SSHConfig) (*SSH, error) {
	if cfg.Host == "" {
		return nil, errors.New("runner: ssh: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 15 * time.Second
	}

	auth, err := sshAuth(cfg)
	if err != nil {
		return nil, err
	}
	hostKeyCallback, err := sshHostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("runner: ssh: dial %s: %w", addr, err)
	}
	return &SSH{client: client, addr: addr}, nil
}

func sshAuth(cfg SSHConfig) ([]ssh.AuthMethod, error) {
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("runner: ssh: read key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("runner: ssh: parse key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if cfg.Password != "" {
		return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil
	}
	return nil, errors.New("runner: ssh: no key file or password configured")
}

func sshHostKeyCallback(cfg SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if cfg.KnownHosts == "" {
		return nil, errors.New("runner: ssh: known_hosts file required (or allow insecure host key)")
	}
	cb, err := knownhosts.New(cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("runner: ssh: load known_hosts: %w", err)
	}
	return cb, nil
}

// Run implements Runner. The command line is shell-quoted and executed by
// the remote login shell. Cancelling ctx closes the session.
func (s *SSH) Run(ctx context.Context, name string, args ...string) (Result, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("runner: ssh %s: new session: %w", s.addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	cmdLine := Quote(append([]string{name}, args...)...)
	done := make(chan error, 1)
	go func() { done <- session.Run(cmdLine) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		<-done
		return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1},
			fmt.Errorf("runner: ssh %s: %s: %w", s.addr, cmdLine, ctx.Err())
	case err = <-done:
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, &ExitError{
			Cmd:    cmdLine,
			Code:   res.ExitCode,
			Output: truncateOutput(res.Combined(), maxErrorOutput),
		}
	}
	res.ExitCode = -1
	return res, fmt.Errorf("runner: ssh %s: %s: %w", s.addr, cmdLine, err)
}

// LookPath implements Runner by asking the remote shell.
func (s *SSH) LookPath(name string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := s.Run(ctx, "sh", "-c", "command -v "+quoteArg(name))
	if err != nil {
		return "", fmt.Errorf("runner: %s not found on %s", name, s.addr)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Close terminates the underlying connection.
func (s *SSH) Close() error {
	return s.client.Close()
}
