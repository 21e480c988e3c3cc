package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/henri123lemoine/shove/internal/debug"
)

// ErrRemoteNotFound is returned when the named remote does not exist or has
// no URL.
var ErrRemoteNotFound = errors.New("remote not found")

// BasicAuthCredential is a username/password pair for HTTP(S) remotes.
// An empty field means the value is unknown.
type BasicAuthCredential struct {
	Username string
	Password string
}

// IsComplete reports whether both username and password are set.
func (c BasicAuthCredential) IsComplete() bool {
	return c.Username != "" && c.Password != ""
}

// Credentials answers credential questions about the remotes of the
// repository in Dir ("" = cwd).
type Credentials struct {
	Dir string
}

// NeedUsernamePassword reports whether pushing to remote uses HTTP(S) and
// therefore needs basic auth. SSH and local remotes authenticate elsewhere.
func (c Credentials) NeedUsernamePassword(remote string) (bool, error) {
	ep, err := remoteEndpoint(c.Dir, remote)
	if err != nil {
		return false, err
	}
	return ep.Protocol == "http" || ep.Protocol == "https", nil
}

// ExtractUsernamePassword returns whatever credential can be found for
// remote without prompting: userinfo embedded in the remote URL, completed
// by the configured git credential helpers. The result may be incomplete.
func (c Credentials) ExtractUsernamePassword(remote string) (BasicAuthCredential, error) {
	ep, err := remoteEndpoint(c.Dir, remote)
	if err != nil {
		return BasicAuthCredential{}, err
	}

	cred := BasicAuthCredential{Username: ep.User, Password: ep.Password}
	if cred.IsComplete() {
		return cred, nil
	}

	filled, err := credentialFill(c.Dir, ep, cred.Username)
	if err != nil {
		// No helper, or the helper wanted to prompt. Keep what the URL had.
		debug.Logger().Debug().Err(err).Str("remote", remote).Msg("credential fill failed")
		return cred, nil
	}
	if cred.Username == "" {
		cred.Username = filled.Username
	}
	if cred.Password == "" {
		cred.Password = filled.Password
	}
	return cred, nil
}

// RemoteURL returns the first URL configured for remote.
func RemoteURL(dir, remote string) (string, error) {
	if dir == "" {
		dir = "."
	}
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	r, err := repo.Remote(remote)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return "", fmt.Errorf("%w: %s", ErrRemoteNotFound, remote)
		}
		return "", fmt.Errorf("remote %s: %w", remote, err)
	}
	urls := r.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s has no url", ErrRemoteNotFound, remote)
	}
	return urls[0], nil
}

func remoteEndpoint(dir, remote string) (*transport.Endpoint, error) {
	url, err := RemoteURL(dir, remote)
	if err != nil {
		return nil, err
	}
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil, fmt.Errorf("parse url of remote %s: %w", remote, err)
	}
	return ep, nil
}

// credentialFillTimeout bounds `git credential fill`. It runs on the UI
// goroutine, and helpers such as GUI keychains may open dialogs.
var credentialFillTimeout = 3 * time.Second

// credentialFillEnv disables every prompt git and common helpers know of.
var credentialFillEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
	"GIT_ASKPASS=",
	"SSH_ASKPASS=",
	"GCM_INTERACTIVE=never",
}

// credentialFill asks `git credential fill` for the credential of ep. A
// helper that would prompt fails or times out instead of blocking the UI.
func credentialFill(dir string, ep *transport.Endpoint, username string) (BasicAuthCredential, error) {
	var in strings.Builder
	fmt.Fprintf(&in, "protocol=%s\n", ep.Protocol)
	fmt.Fprintf(&in, "host=%s\n", endpointHost(ep))
	if path := strings.TrimPrefix(ep.Path, "/"); path != "" {
		fmt.Fprintf(&in, "path=%s\n", path)
	}
	if username != "" {
		fmt.Fprintf(&in, "username=%s\n", username)
	}
	in.WriteString("\n")

	ctx, cancel := context.WithTimeout(context.Background(), credentialFillTimeout)
	defer cancel()
	output, err := runGitContext(ctx, dir, in.String(), credentialFillEnv, "credential", "fill")
	if err != nil {
		return BasicAuthCredential{}, err
	}
	return parseCredentialOutput(output), nil
}

// parseCredentialOutput parses the key=value lines of `git credential fill`.
func parseCredentialOutput(output string) BasicAuthCredential {
	var cred BasicAuthCredential
	for _, line := range strings.Split(output, "\n") {
		k, v, ok := strings.Cut(strings.TrimRight(line, "\r"), "=")
		if !ok {
			continue
		}
		switch k {
		case "username":
			cred.Username = v
		case "password":
			cred.Password = v
		}
	}
	return cred
}

func endpointHost(ep *transport.Endpoint) string {
	if ep.Port == 0 ||
		(ep.Protocol == "https" && ep.Port == 443) ||
		(ep.Protocol == "http" && ep.Port == 80) {
		return ep.Host
	}
	return ep.Host + ":" + strconv.Itoa(ep.Port)
}
