package wikidata

import (
	"github.com/tidwall/gjson"
)

// Rank orders claims of the same property. Normal is the zero value.
type Rank int8

const (
	RankDeprecated Rank = -1
	RankNormal     Rank = 0
	RankPreferred  Rank = 1
)

func (r Rank) String() string {
	switch r {
	case RankDeprecated:
		return "deprecated"
	case RankNormal:
		return "normal"
	case RankPreferred:
		return "preferred"
	}
	return "unknown"
}

// ParseRank maps the raw rank string.
func ParseRank(s string) (Rank, bool) {
	switch s {
	case "deprecated":
		return RankDeprecated, true
	case "normal":
		return RankNormal, true
	case "preferred":
		return RankPreferred, true
	}
	return 0, false
}

// Reference is one citation: snaks grouped by property.
type Reference struct {
	Hash  string
	Snaks SnakGroups
}

// Equal compares two references as sets of snaks per property. Group order,
// snak order and the hash are ignored.
func (r *Reference) Equal(o *Reference) bool {
	if r.Snaks.Len() != o.Snaks.Len() {
		return false
	}
	for pid, snaks := range r.Snaks.All() {
		other, ok := o.Snaks.Get(pid)
		if !ok || len(other) != len(snaks) {
			return false
		}
		counts := make(map[Snak]int, len(snaks))
		for _, s := range snaks {
			counts[s]++
		}
		for _, s := range other {
			if counts[s] == 0 {
				return false
			}
			counts[s]--
		}
	}
	return true
}

// Claim is a statement: a main snak plus rank, qualifiers and references.
// Qualifiers and References are empty, never absent, when the record has none.
type Claim struct {
	ID         string
	MainSnak   Snak
	Rank       Rank
	Qualifiers SnakGroups
	References []Reference
}

// Property returns the property the claim is about.
func (c *Claim) Property() EntityID { return c.MainSnak.Property }

// reporter routes decode errors. In strict mode report hands the error back so
// the caller aborts; in lenient mode it records the error and returns nil.
type reporter struct {
	lenient bool
	errs    []*DecodeError
}

func (r *reporter) report(err *DecodeError) *DecodeError {
	if !r.lenient {
		return err
	}
	r.errs = append(r.errs, err)
	return nil
}

// DecodeClaim decodes one raw claim strictly: any error anywhere in the claim is returned.
func DecodeClaim(raw gjson.Result) (Claim, error) {
	c, err := decodeClaim(raw, &reporter{})
	if err != nil {
		return Claim{}, err
	}
	return c, nil
}

// decodeClaim returns an error for failures that make the whole claim unusable
// (main snak, rank). Failures inside qualifiers and references go through rep.
func decodeClaim(raw gjson.Result, rep *reporter) (Claim, *DecodeError) {
	if !raw.IsObject() {
		return Claim{}, newError(MissingRequiredField, "", "claim", "claim is not an object")
	}

	var c Claim
	at := Location{}
	if id := raw.Get("id"); id.Exists() {
		if id.Type != gjson.String {
			return Claim{}, newError(MissingRequiredField, "", "id", "claim id is not a string")
		}
		c.ID = id.Str
		at.ClaimID = id.Str
	}

	main, err := decodeSnak(raw.Get("mainsnak"))
	if err != nil {
		mainAt := at
		mainAt.Part = PartMainSnak
		return Claim{}, err.locate(mainAt)
	}
	c.MainSnak = main
	at.Property = main.Property

	if rank := raw.Get("rank"); rank.Exists() {
		r, ok := ParseRank(rank.Str)
		if rank.Type != gjson.String || !ok {
			rankAt := at
			rankAt.Part = PartRank
			return Claim{}, newError(UnknownRank, "", "rank", "unknown rank %s", rank.Raw).locate(rankAt)
		}
		c.Rank = r
	}

	qualAt := at
	qualAt.Part = PartQualifiers
	if c.Qualifiers, err = decodeSnakGroups(raw.Get("qualifiers"), raw.Get("qualifiers-order"), qualAt, rep); err != nil {
		return Claim{}, err
	}

	if c.References, err = decodeReferences(raw.Get("references"), at, rep); err != nil {
		return Claim{}, err
	}
	if c.References == nil {
		c.References = []Reference{}
	}
	return c, nil
}

func decodeReferences(raw gjson.Result, at Location, rep *reporter) ([]Reference, *DecodeError) {
	at.Part = PartReferences
	if !raw.Exists() || raw.Type == gjson.Null {
		return nil, nil
	}
	if !raw.IsArray() {
		return nil, rep.report(newError(MissingRequiredField, "", "references", "references is not an array").locate(at))
	}

	var refs []Reference
	for i, block := range raw.Array() {
		refAt := at
		refAt.Reference = i
		if !block.IsObject() {
			if err := rep.report(newError(MissingRequiredField, "", "reference", "reference is not an object").locate(refAt)); err != nil {
				return nil, err
			}
			continue
		}
		before := len(rep.errs)
		snaks, err := decodeSnakGroups(block.Get("snaks"), block.Get("snaks-order"), refAt, rep)
		if err != nil {
			return nil, err
		}
		if snaks.Len() == 0 && len(rep.errs) > before {
			// Every snak of the reference failed; an empty citation is worse than none.
			continue
		}
		refs = append(refs, Reference{Hash: block.Get("hash").Str, Snaks: snaks})
	}
	return refs, nil
}

// decodeSnakGroups decodes a property -> []snak object. Groups follow the
// explicit order list when one is given; groups it does not mention follow in
// encounter order, and names in the list without a group are ignored.
func decodeSnakGroups(obj, order gjson.Result, at Location, rep *reporter) (SnakGroups, *DecodeError) {
	var groups SnakGroups
	if !obj.Exists() || obj.Type == gjson.Null {
		return groups, nil
	}
	if !obj.IsObject() {
		return groups, rep.report(newError(MissingRequiredField, "", string(at.Part), "%s is not an object", at.Part).locate(at))
	}

	var encountered, dupes []string
	byKey := make(map[string]gjson.Result)
	obj.ForEach(func(k, v gjson.Result) bool {
		if _, ok := byKey[k.Str]; ok {
			dupes = append(dupes, k.Str)
			return true
		}
		encountered = append(encountered, k.Str)
		byKey[k.Str] = v
		return true
	})
	// A repeated key keeps its first group; the repeat is reported.
	for _, key := range dupes {
		dupAt := at
		if pid, perr := ParseEntityID(key); perr == nil {
			dupAt.SnakProperty = pid
		}
		if err := rep.report(newError(KindConflict, "", key, "%s listed twice in %s", key, at.Part).locate(dupAt)); err != nil {
			return groups, err
		}
	}

	for _, key := range orderKeys(encountered, order) {
		pid, perr := ParseEntityID(key)
		if perr == nil && !pid.IsProperty() {
			perr = newError(UnknownEntityPrefix, "", "property", "%s is not a property id", key)
		}
		if perr != nil {
			if err := rep.report(asDecodeError(perr).locate(at)); err != nil {
				return groups, err
			}
			continue
		}

		arr := byKey[key]
		if !arr.IsArray() {
			groupAt := at
			groupAt.SnakProperty = pid
			if err := rep.report(newError(MissingRequiredField, "", key, "snak group is not an array").locate(groupAt)); err != nil {
				return groups, err
			}
			continue
		}

		var snaks []Snak
		for i, raw := range arr.Array() {
			snakAt := at
			snakAt.SnakProperty = pid
			snakAt.Snak = i

			s, err := decodeSnak(raw)
			if err == nil && s.Property != pid {
				err = newError(KindConflict, "", "property", "snak for %s listed under %s", s.Property, pid)
			}
			if err != nil {
				err.Location.SnakProperty = pid
				err.Location.Snak = i
				if fatal := rep.report(err.locate(snakAt)); fatal != nil {
					return groups, fatal
				}
				continue
			}
			snaks = append(snaks, s)
		}
		if len(snaks) > 0 {
			groups.Set(pid, snaks)
		}
	}
	return groups, nil
}

func orderKeys(encountered []string, order gjson.Result) []string {
	seen := make(map[string]bool, len(encountered))
	keys := make([]string, 0, len(encountered))

	if order.IsArray() {
		present := make(map[string]bool, len(encountered))
		for _, k := range encountered {
			present[k] = true
		}
		for _, o := range order.Array() {
			if o.Type == gjson.String && present[o.Str] && !seen[o.Str] {
				seen[o.Str] = true
				keys = append(keys, o.Str)
			}
		}
	}
	for _, k := range encountered {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
