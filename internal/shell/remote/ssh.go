package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// =============================================================================
// SSH Runner
// =============================================================================

// SSHRunner executes commands on a remote host over SSH. Used when the
// reverse proxy runs on a different machine than the orchestrator.
type SSHRunner struct {
	host    string
	port    int
	user    string
	signer  ssh.Signer
	timeout time.Duration

	mu     sync.Mutex // protects client
	client *ssh.Client
}

// SSHConfig configures the SSH runner.
type SSHConfig struct {
	Host           string
	Port           int           // Default: 22
	User           string
	PrivateKey     []byte        // PEM-encoded private key
	CommandTimeout time.Duration // Default: 30 seconds
}

// NewSSHRunner creates an SSH-backed runner. The connection is established
// lazily on first use and re-established if it goes stale.
func NewSSHRunner(cfg SSHConfig) (*SSHRunner, error) {
	signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse SSH private key: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 30 * time.Second
	}

	return &SSHRunner{
		host:    cfg.Host,
		port:    cfg.Port,
		user:    cfg.User,
		signer:  signer,
		timeout: cfg.CommandTimeout,
	}, nil
}

// connect establishes the SSH connection if not already connected.
func (r *SSHRunner) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		// Check if connection is still alive
		_, _, err := r.client.SendRequest("keepalive@switchyard", true, nil)
		if err == nil {
			return nil
		}
		// Connection dead, reconnect
		r.client.Close()
		r.client = nil
	}

	config := &ssh.ClientConfig{
		User:            r.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(r.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: Store and verify host keys
		Timeout:         10 * time.Second,
	}

	addr := net.JoinHostPort(r.host, strconv.Itoa(r.port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return fmt.Errorf("SSH dial %s: %w", addr, err)
	}

	r.client = client
	return nil
}

// Run executes the command on the remote host in a fresh session.
func (r *SSHRunner) Run(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	session, err := r.client.NewSession()
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("create SSH session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != nil {
		session.Stdin = stdin
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		return stdout.Bytes(), ctx.Err()
	case <-time.After(r.timeout):
		return stdout.Bytes(), &RunError{Command: command, Err: fmt.Errorf("timeout after %s", r.timeout)}
	case err := <-done:
		if err != nil {
			return stdout.Bytes(), &RunError{Command: command, Stderr: stderr.String(), Err: err}
		}
		return stdout.Bytes(), nil
	}
}

// Close closes the SSH connection.
func (r *SSHRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		err := r.client.Close()
		r.client = nil
		return err
	}
	return nil
}
