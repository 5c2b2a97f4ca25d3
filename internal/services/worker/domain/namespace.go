package domain

import (
	"strings"
	"time"
)

// NamespaceClass is one logical cache bucket class.
type NamespaceClass string

const (
	// ClassStatic holds long-lived application assets.
	ClassStatic NamespaceClass = "static"
	// ClassDynamic holds navigations, locale data, and API-adjacent documents.
	ClassDynamic NamespaceClass = "dynamic"
	// ClassImages holds image assets.
	ClassImages NamespaceClass = "images"
)

// FamilyPrefix marks every bucket owned by this application.
const FamilyPrefix = "di-web-"

// legacyPrefixes name bucket families from earlier releases. Activation
// purges any bucket matching one of them.
var legacyPrefixes = []string{"offline-cache-", "di-web-cache-"}

// NamespacePolicy bounds one bucket class.
type NamespacePolicy struct {
	Class NamespaceClass
	// TTL is the maximum entry age for fresh cache-first reads. Zero or
	// negative disables expiry.
	TTL time.Duration
	// MaxEntries bounds the bucket size. Zero or negative disables trimming.
	MaxEntries int
}

// NamespaceSet holds the active bucket policies for one worker version.
type NamespaceSet struct {
	Version string
	Static  NamespacePolicy
	Dynamic NamespacePolicy
	Images  NamespacePolicy
}

// DefaultNamespaces returns the standard policies for a worker version:
// static assets kept a week unbounded, dynamic documents kept a day capped
// at 50 entries, images kept a month capped at 60 entries.
func DefaultNamespaces(version string) NamespaceSet {
	return NamespaceSet{
		Version: strings.TrimSpace(version),
		Static:  NamespacePolicy{Class: ClassStatic, TTL: 7 * 24 * time.Hour},
		Dynamic: NamespacePolicy{Class: ClassDynamic, TTL: 24 * time.Hour, MaxEntries: 50},
		Images:  NamespacePolicy{Class: ClassImages, TTL: 30 * 24 * time.Hour, MaxEntries: 60},
	}
}

// Policy returns the policy for class.
func (s NamespaceSet) Policy(class NamespaceClass) NamespacePolicy {
	switch class {
	case ClassStatic:
		return s.Static
	case ClassImages:
		return s.Images
	default:
		return s.Dynamic
	}
}

// Name returns the full bucket name for class at this version.
func (s NamespaceSet) Name(class NamespaceClass) string {
	return FamilyPrefix + string(class) + "-" + s.Version
}

// Names returns the current bucket names for all classes.
func (s NamespaceSet) Names() []string {
	return []string{s.Name(ClassStatic), s.Name(ClassDynamic), s.Name(ClassImages)}
}

// Current reports whether name is one of this version's buckets.
func (s NamespaceSet) Current(name string) bool {
	for _, current := range s.Names() {
		if name == current {
			return true
		}
	}
	return false
}

// Stale reports whether name belongs to this application's bucket family
// but not to the current version.
func (s NamespaceSet) Stale(name string) bool {
	return strings.HasPrefix(name, FamilyPrefix) && !s.Current(name)
}

// Legacy reports whether name matches a retired bucket family prefix.
func Legacy(name string) bool {
	for _, prefix := range legacyPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
