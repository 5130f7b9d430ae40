package wikidata

import (
	"log/slog"
	"time"

	"github.com/tidwall/gjson"
)

// Sitelink links an item to a page on a Wikimedia site.
type Sitelink struct {
	Site   string
	Title  string
	Badges []EntityID
	URL    string // only present in some API responses
}

// Entity is a decoded item or property. It is read-only after Parse returns.
type Entity struct {
	ID EntityID
	// Datatype is set for properties only.
	Datatype     Datatype
	Labels       MultilingualText
	Descriptions MultilingualText
	Aliases      AliasMap
	Claims       ClaimMap
	// Sitelinks is always empty for properties.
	Sitelinks SitelinkMap
	LastRevID uint64
	Modified  time.Time
}

// Kind is Item or Property.
func (e *Entity) Kind() IDKind { return e.ID.Kind }

func (e *Entity) IsItem() bool     { return e.ID.IsItem() }
func (e *Entity) IsProperty() bool { return e.ID.IsProperty() }

// Label returns the label in the first of langs that has one.
func (e *Entity) Label(langs ...string) (string, bool) {
	return firstText(&e.Labels, langs)
}

// Description returns the description in the first of langs that has one.
func (e *Entity) Description(langs ...string) (string, bool) {
	return firstText(&e.Descriptions, langs)
}

func firstText(m *MultilingualText, langs []string) (string, bool) {
	for _, l := range langs {
		if s, ok := m.Get(l); ok {
			return s, true
		}
	}
	return "", false
}

// ClaimsFor returns all claims of a property in input order.
func (e *Entity) ClaimsFor(pid EntityID) []Claim {
	c, _ := e.Claims.Get(pid)
	return c
}

// BestClaims returns the preferred claims of a property, or the normal ones if
// none is preferred. Deprecated claims are never returned.
func (e *Entity) BestClaims(pid EntityID) []Claim {
	var preferred, normal []Claim
	for _, c := range e.ClaimsFor(pid) {
		switch c.Rank {
		case RankPreferred:
			preferred = append(preferred, c)
		case RankNormal:
			normal = append(normal, c)
		}
	}
	if len(preferred) > 0 {
		return preferred
	}
	return normal
}

// Instances returns the items this entity is an instance of (P31).
func (e *Entity) Instances() []EntityID {
	var out []EntityID
	for _, c := range e.ClaimsFor(InstanceOf) {
		if ref, ok := c.MainSnak.Value.(EntityRef); ok && ref.ID.IsItem() {
			out = append(out, ref.ID)
		}
	}
	return out
}

// StartTime returns the first date of birth (P569) with a known value.
func (e *Entity) StartTime() (Time, bool) { return e.firstTime(DateOfBirth) }

// EndTime returns the first date of death (P570) with a known value.
func (e *Entity) EndTime() (Time, bool) { return e.firstTime(DateOfDeath) }

func (e *Entity) firstTime(pid EntityID) (Time, bool) {
	for _, c := range e.BestClaims(pid) {
		if t, ok := c.MainSnak.Value.(Time); ok {
			return t, true
		}
	}
	return Time{}, false
}

// builder assembles one Entity from a raw record. Structural problems are
// returned; everything else goes through rep.
type builder struct {
	rep *reporter
	log *slog.Logger
}

func (b *builder) build(root gjson.Result) (*Entity, *DecodeError) {
	at := Location{Section: SectionEntity}
	if !root.IsObject() {
		return nil, newError(MalformedJSON, "", "entity", "entity record is not an object").locate(at)
	}

	rawID := root.Get("id")
	if rawID.Type != gjson.String {
		return nil, newError(MissingRequiredField, "", "id", "entity has no id").locate(at)
	}
	id, err := ParseEntityID(rawID.Str)
	if err != nil {
		return nil, asDecodeError(err).locate(at)
	}
	if !id.IsItem() && !id.IsProperty() {
		return nil, newError(UnknownEntityPrefix, "", "id", "%s entities are not supported", id.Kind).locate(at)
	}

	if typ := root.Get("type"); typ.Exists() {
		kind, ok := parseIDKind(typ.Str)
		if typ.Type != gjson.String || !ok || (kind != Item && kind != Property) {
			return nil, newError(UnknownEntityPrefix, "", "type", "unknown entity type %s", typ.Raw).locate(at)
		}
		if kind != id.Kind {
			return nil, newError(KindConflict, "", "type", "type %s does not match id %s", typ.Str, id).locate(at)
		}
	}

	e := &Entity{ID: id}
	if id.IsProperty() {
		if dt := root.Get("datatype"); dt.Type == gjson.String {
			e.Datatype = Datatype(dt.Str)
		}
	}

	if fatal := b.terms(root.Get("labels"), SectionLabels, &e.Labels); fatal != nil {
		return nil, fatal
	}
	if fatal := b.terms(root.Get("descriptions"), SectionDescriptions, &e.Descriptions); fatal != nil {
		return nil, fatal
	}
	if fatal := b.aliases(root.Get("aliases"), &e.Aliases); fatal != nil {
		return nil, fatal
	}
	if fatal := b.claims(root.Get("claims"), &e.Claims); fatal != nil {
		return nil, fatal
	}

	links := root.Get("sitelinks")
	switch {
	case id.IsItem():
		if fatal := b.sitelinks(links, &e.Sitelinks); fatal != nil {
			return nil, fatal
		}
	case isNonEmpty(links):
		b.log.Debug("ignoring sitelinks on property", "id", id)
	}

	if rev := root.Get("lastrevid"); rev.Exists() {
		if rev.Type != gjson.Number || rev.Num < 0 {
			fieldAt := at
			fieldAt.Key = "lastrevid"
			if fatal := b.rep.report(newError(MalformedNumber, "", "lastrevid", "lastrevid %s is not a revision number", rev.Raw).locate(fieldAt)); fatal != nil {
				return nil, fatal
			}
		} else {
			e.LastRevID = rev.Uint()
		}
	}
	if mod := root.Get("modified"); mod.Exists() {
		ts, perr := time.Parse(time.RFC3339, mod.Str)
		if mod.Type != gjson.String || perr != nil {
			fieldAt := at
			fieldAt.Key = "modified"
			if fatal := b.rep.report(wrapError(MalformedDate, "", "modified", perr, "bad modified timestamp %s", mod.Raw).locate(fieldAt)); fatal != nil {
				return nil, fatal
			}
		} else {
			e.Modified = ts
		}
	}
	return e, nil
}

// isNonEmpty treats null, {} and [] alike. PHP-generated dumps write empty maps as [].
func isNonEmpty(r gjson.Result) bool {
	if !r.Exists() || r.Type == gjson.Null {
		return false
	}
	empty := true
	r.ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	return !empty
}

// section checks the shape of a top-level map. ok is false when there is nothing to decode.
func (b *builder) section(raw gjson.Result, sec Section) (ok bool, fatal *DecodeError) {
	if !isNonEmpty(raw) {
		return false, nil
	}
	if !raw.IsObject() {
		return false, b.rep.report(newError(MissingRequiredField, "", string(sec), "%s is not an object", sec).locate(Location{Section: sec}))
	}
	return true, nil
}

func (b *builder) terms(raw gjson.Result, sec Section, dst *MultilingualText) *DecodeError {
	ok, fatal := b.section(raw, sec)
	if !ok {
		return fatal
	}
	raw.ForEach(func(k, v gjson.Result) bool {
		text := v.Get("value")
		if text.Type != gjson.String {
			fatal = b.rep.report(newError(MissingRequiredField, "", "value", "term has no value").locate(Location{Section: sec, Key: k.Str}))
			return fatal == nil
		}
		dst.Set(k.Str, text.Str)
		return true
	})
	return fatal
}

func (b *builder) aliases(raw gjson.Result, dst *AliasMap) *DecodeError {
	ok, fatal := b.section(raw, SectionAliases)
	if !ok {
		return fatal
	}
	raw.ForEach(func(k, v gjson.Result) bool {
		at := Location{Section: SectionAliases, Key: k.Str}
		if !v.IsArray() {
			fatal = b.rep.report(newError(MissingRequiredField, "", "aliases", "aliases are not a list").locate(at))
			return fatal == nil
		}
		var list []string
		for _, a := range v.Array() {
			text := a.Get("value")
			if text.Type != gjson.String {
				if fatal = b.rep.report(newError(MissingRequiredField, "", "value", "alias has no value").locate(at)); fatal != nil {
					return false
				}
				continue
			}
			list = append(list, text.Str)
		}
		if len(list) > 0 {
			dst.Set(k.Str, list)
		}
		return true
	})
	return fatal
}

func (b *builder) claims(raw gjson.Result, dst *ClaimMap) *DecodeError {
	ok, fatal := b.section(raw, SectionClaims)
	if !ok {
		return fatal
	}
	raw.ForEach(func(k, v gjson.Result) bool {
		at := Location{Section: SectionClaims}
		pid, err := ParseEntityID(k.Str)
		if err == nil && !pid.IsProperty() {
			err = newError(UnknownEntityPrefix, "", "property", "claims key %s is not a property id", k.Str)
		}
		if err != nil {
			at.Key = k.Str
			fatal = b.rep.report(asDecodeError(err).locate(at))
			return fatal == nil
		}
		at.Property = pid
		if !v.IsArray() {
			fatal = b.rep.report(newError(MissingRequiredField, "", "claims", "claims of %s are not a list", pid).locate(at))
			return fatal == nil
		}

		before := len(b.rep.errs)
		claims := []Claim{}
		for _, raw := range v.Array() {
			mark := len(b.rep.errs)
			c, err := decodeClaim(raw, b.rep)
			for _, collected := range b.rep.errs[mark:] {
				collected.locate(at)
			}
			if err == nil && c.Property() != pid {
				err = newError(KindConflict, "", "property", "claim for %s listed under %s", c.Property(), pid)
				err.Location.ClaimID = c.ID
			}
			if err != nil {
				if fatal = b.rep.report(err.locate(at)); fatal != nil {
					return false
				}
				b.log.Debug("dropped claim", "property", pid, "error", err)
				continue
			}
			claims = append(claims, c)
		}
		// A property whose claims all failed is left out rather than shown empty.
		if len(claims) > 0 || len(b.rep.errs) == before {
			dst.Set(pid, claims)
		}
		return true
	})
	return fatal
}

func (b *builder) sitelinks(raw gjson.Result, dst *SitelinkMap) *DecodeError {
	ok, fatal := b.section(raw, SectionSitelinks)
	if !ok {
		return fatal
	}
	raw.ForEach(func(k, v gjson.Result) bool {
		at := Location{Section: SectionSitelinks, Key: k.Str}
		title := v.Get("title")
		if title.Type != gjson.String {
			fatal = b.rep.report(newError(MissingRequiredField, "", "title", "sitelink has no title").locate(at))
			return fatal == nil
		}
		link := Sitelink{Site: k.Str, Title: title.Str, URL: v.Get("url").Str}
		if site := v.Get("site"); site.Type == gjson.String {
			link.Site = site.Str
		}
		for _, badge := range v.Get("badges").Array() {
			id, err := ParseEntityID(badge.Str)
			if err == nil && !id.IsItem() {
				err = newError(UnknownEntityPrefix, "", "badges", "badge %s is not an item", id)
			}
			if err != nil {
				if fatal = b.rep.report(asDecodeError(err).withField("badges").locate(at)); fatal != nil {
					return false
				}
				continue
			}
			link.Badges = append(link.Badges, id)
		}
		dst.Set(k.Str, link)
		return true
	})
	return fatal
}
