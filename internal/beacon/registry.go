package beacon

// Registry maps organization slugs to beacon org codes. The table is external
// configuration (see config.OrgCodeTable), assigned out of band; it is looked
// up, never computed.
type Registry struct {
	bySlug map[string]uint16
	byCode map[uint16]string
}

// NewRegistry builds a Registry from the slug → code table.
func NewRegistry(table map[string]uint16) *Registry {
	r := &Registry{
		bySlug: make(map[string]uint16, len(table)),
		byCode: make(map[uint16]string, len(table)),
	}
	for slug, code := range table {
		r.bySlug[slug] = code
		r.byCode[code] = slug
	}
	return r
}

// OrgCode returns the beacon code for slug, or UnknownOrgCode when the slug is
// not registered.
func (r *Registry) OrgCode(slug string) uint16 {
	if r == nil {
		return UnknownOrgCode
	}
	return r.bySlug[slug]
}

// Slug returns the slug registered for code and whether it exists. Code 0
// never resolves.
func (r *Registry) Slug(code uint16) (string, bool) {
	if r == nil || code == UnknownOrgCode {
		return "", false
	}
	slug, ok := r.byCode[code]
	return slug, ok
}
