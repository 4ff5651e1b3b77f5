// bucketname.go derives the deterministic per-tenant bucket name. The
// function is pure: the same (prefix, organization name, tenant ID) triple
// always yields the same bucket name, so provisioning, deletion, and upload
// paths agree without coordination. The stored name on the tenant record is
// authoritative once set; callers fall back to derivation only when the
// stored value is absent.
package storage

import "strings"

// BucketName composes "<prefix>-<slug>-<tenantID>" where slug is the
// organization name lowercased, stripped to letters/digits/spaces/hyphens,
// with whitespace runs and repeated hyphens collapsed to single hyphens and
// edge hyphens trimmed.
func BucketName(prefix, organizationName, tenantID string) string {
	slug := slugify(organizationName)
	if slug == "" {
		return prefix + "-" + tenantID
	}
	return prefix + "-" + slug + "-" + tenantID
}

func slugify(name string) string {
	lower := strings.ToLower(name)

	// Hyphens are treated as separators alongside whitespace so that
	// "a - b", "a--b", and "a b" all slug to "a-b".
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '-':
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	return strings.Join(fields, "-")
}
