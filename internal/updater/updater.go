// Package updater replaces the running binary with the latest GitHub
// release.
package updater

import (
	"fmt"
	"io"
	"strings"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

const DefaultSlug = "iaimans/sesame-cli"

// Version is set at build time with -ldflags "-X ...updater.Version=1.2.3".
var Version = "dev"

type updateFunc func(current semver.Version, slug string) (*selfupdate.Release, error)

type Updater struct {
	Slug    string
	Current string
	update  updateFunc
}

func New(current string) *Updater {
	return &Updater{Slug: DefaultSlug, Current: current, update: selfupdate.UpdateSelf}
}

// Upgrade updates the binary in place and reports the outcome on w.
// Development builds are never updated.
func (u *Updater) Upgrade(w io.Writer) error {
	raw := strings.TrimPrefix(u.Current, "v")
	if raw == "" || raw == "dev" {
		fmt.Fprintln(w, "Running a development build, skipping upgrade.")
		return nil
	}
	v, err := semver.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse current version %q: %w", u.Current, err)
	}

	fmt.Fprintln(w, "Checking and applying upgrade")
	latest, err := u.update(v, u.Slug)
	if err != nil {
		return fmt.Errorf("binary update failed: %w", err)
	}
	if latest == nil || latest.Version.Equals(v) {
		fmt.Fprintln(w, "Current binary is the latest version", u.Current)
		return nil
	}
	fmt.Fprintln(w, "Successfully updated to version", latest.Version)
	if latest.ReleaseNotes != "" {
		fmt.Fprintln(w, "Release note:\n", latest.ReleaseNotes)
	}
	return nil
}

// String renders the version line printed by the version command.
func String(version string) string {
	return "sesame-cli version " + version
}
