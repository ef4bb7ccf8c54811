package publish

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// CredentialsFile is the file name used under the home directory.
const CredentialsFile = ".git_credentials"

// WriteCredentials writes a single git-credentials line granting token
// access to host. The file is readable by the owner only.
func WriteCredentials(path, token, host string) error {
	u := url.URL{Scheme: "https", User: url.UserPassword(token, ""), Host: host}
	return os.WriteFile(path, []byte(u.String()+"\n"), 0o600)
}

// ReadCredentials returns basic auth for host from a git-credentials file.
func ReadCredentials(path, host string) (*http.BasicAuth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.User == nil || u.Host != host {
			continue
		}
		password, _ := u.User.Password()
		return &http.BasicAuth{Username: u.User.Username(), Password: password}, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no credentials for %s in %s", host, path)
}
