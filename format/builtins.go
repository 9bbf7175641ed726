package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchyny/timefmt-go"
	"golang.org/x/net/idna"

	"github.com/speakeasy-api/schemafaker/pattern"
	"github.com/speakeasy-api/schemafaker/random"
)

const (
	layoutDateTime = "%Y-%m-%dT%H:%M:%SZ"
	layoutDate     = "%Y-%m-%d"
	layoutTime     = "%H:%M:%SZ"
)

var (
	earliestDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	latestDate   = time.Date(2070, time.December, 31, 23, 59, 59, 0, time.UTC)
)

var (
	hostLabelPattern = mustCompile(`[a-z][a-z0-9-]{1,16}[a-z0-9]`)
	emailLocal       = mustCompile(`[a-z][a-z0-9._-]{1,12}[a-z0-9]`)
	pathSegment      = mustCompile(`[a-z0-9_-]{1,12}`)
	ipv6Group        = mustCompile(`[0-9a-f]{1,4}`)
)

var topLevelDomains = []string{"com", "net", "org", "io", "dev", "app", "info"}

// idnRunes are letters mixed into internationalized labels.
var idnRunes = []rune("äöüéèñçøåßłž")

var builtins = map[string]Generator{
	"date-time":             dateTime,
	"datetime":              dateTime,
	"date":                  date,
	"full-date":             date,
	"time":                  timeOfDay,
	"duration":              duration,
	"email":                 email,
	"idn-email":             idnEmail,
	"hostname":              hostname,
	"idn-hostname":          idnHostname,
	"ipv4":                  ipv4,
	"ipv6":                  ipv6,
	"uri":                   uri,
	"uri-reference":         uriReference,
	"iri":                   iri,
	"iri-reference":         iriReference,
	"uri-template":          uriTemplate,
	"json-pointer":          jsonPointer,
	"relative-json-pointer": relativeJSONPointer,
	"uuid":                  uuidFormat,
	"slug":                  slug,
	"regex":                 regex,
}

func mustCompile(expr string) *pattern.Pattern {
	p, err := pattern.Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func gen(r *random.Rand, p *pattern.Pattern) string {
	s, err := p.Generate(r, 0)
	if err != nil {
		// Built-in patterns are static and always generate.
		panic(err)
	}
	return s
}

// dateBounds honors formatMinimum/formatMaximum when they parse as dates.
func dateBounds(schema map[string]any) (time.Time, time.Time) {
	lo, hi := earliestDate, latestDate
	if s, ok := schema["formatMinimum"].(string); ok {
		if t, ok := parseDate(s); ok {
			lo = t
		}
	}
	if s, ok := schema["formatMaximum"].(string); ok {
		if t, ok := parseDate(s); ok {
			hi = t
		}
	}
	return lo, hi
}

func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	for _, layout := range []string{"%Y-%m-%dT%H:%M:%S", layoutDate} {
		if t, err := timefmt.Parse(s, layout); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func dateTime(r *random.Rand, schema map[string]any) (any, error) {
	lo, hi := dateBounds(schema)
	return timefmt.Format(r.Date(lo, hi), layoutDateTime), nil
}

func date(r *random.Rand, schema map[string]any) (any, error) {
	lo, hi := dateBounds(schema)
	return timefmt.Format(r.Date(lo, hi), layoutDate), nil
}

func timeOfDay(r *random.Rand, _ map[string]any) (any, error) {
	return timefmt.Format(r.Date(earliestDate, earliestDate.Add(24*time.Hour-time.Second)), layoutTime), nil
}

func duration(r *random.Rand, _ map[string]any) (any, error) {
	var b strings.Builder
	b.WriteByte('P')
	if d := r.Int(0, 30); d > 0 {
		fmt.Fprintf(&b, "%dD", d)
	}
	b.WriteByte('T')
	fmt.Fprintf(&b, "%dH%dM%dS", r.Int(0, 23), r.Int(0, 59), r.Int(1, 59))
	return b.String(), nil
}

func hostnameString(r *random.Rand) string {
	return gen(r, hostLabelPattern) + "." + random.Pick(r, topLevelDomains)
}

func hostname(r *random.Rand, _ map[string]any) (any, error) {
	return hostnameString(r), nil
}

func email(r *random.Rand, _ map[string]any) (any, error) {
	return gen(r, emailLocal) + "@" + hostnameString(r), nil
}

func idnHostnameString(r *random.Rand) string {
	label := []rune(gen(r, hostLabelPattern))
	label[r.Int(0, len(label)-1)] = random.Pick(r, idnRunes)
	host := string(label) + "." + random.Pick(r, topLevelDomains)
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return hostnameString(r)
	}
	unicode, err := idna.Lookup.ToUnicode(ascii)
	if err != nil {
		return ascii
	}
	return unicode
}

func idnHostname(r *random.Rand, _ map[string]any) (any, error) {
	return idnHostnameString(r), nil
}

func idnEmail(r *random.Rand, _ map[string]any) (any, error) {
	return gen(r, emailLocal) + "@" + idnHostnameString(r), nil
}

func ipv4(r *random.Rand, _ map[string]any) (any, error) {
	return fmt.Sprintf("%d.%d.%d.%d", r.Int(0, 255), r.Int(0, 255), r.Int(0, 255), r.Int(0, 255)), nil
}

func ipv6(r *random.Rand, _ map[string]any) (any, error) {
	groups := make([]string, 8)
	for i := range groups {
		groups[i] = gen(r, ipv6Group)
	}
	return strings.Join(groups, ":"), nil
}

func pathString(r *random.Rand) string {
	var b strings.Builder
	for i, n := 0, r.Int(0, 3); i < n; i++ {
		b.WriteByte('/')
		b.WriteString(gen(r, pathSegment))
	}
	return b.String()
}

func uri(r *random.Rand, _ map[string]any) (any, error) {
	return random.Pick(r, []string{"http", "https"}) + "://" + hostnameString(r) + pathString(r), nil
}

func uriReference(r *random.Rand, schema map[string]any) (any, error) {
	switch r.Int(0, 2) {
	case 0:
		return uri(r, schema)
	case 1:
		return "/" + gen(r, pathSegment) + pathString(r), nil
	default:
		return "#" + gen(r, pathSegment), nil
	}
}

func iri(r *random.Rand, _ map[string]any) (any, error) {
	return "https://" + idnHostnameString(r) + pathString(r), nil
}

func iriReference(r *random.Rand, schema map[string]any) (any, error) {
	if r.Bool() {
		return iri(r, schema)
	}
	return "/" + gen(r, pathSegment) + pathString(r), nil
}

func uriTemplate(r *random.Rand, _ map[string]any) (any, error) {
	return "https://" + hostnameString(r) + "/" + gen(r, pathSegment) + "/{" + Words(r, 1)[0] + "}", nil
}

func escapePointerToken(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func jsonPointerString(r *random.Rand) string {
	var b strings.Builder
	for _, w := range Words(r, r.Int(1, 3)) {
		b.WriteByte('/')
		b.WriteString(escapePointerToken(w))
	}
	return b.String()
}

func jsonPointer(r *random.Rand, _ map[string]any) (any, error) {
	return jsonPointerString(r), nil
}

func relativeJSONPointer(r *random.Rand, _ map[string]any) (any, error) {
	prefix := strconv.Itoa(r.Int(0, 5))
	if r.Bool() {
		return prefix + "#", nil
	}
	return prefix + jsonPointerString(r), nil
}

func uuidFormat(r *random.Rand, _ map[string]any) (any, error) {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("uuid: %w", err)
	}
	return id.String(), nil
}

func slug(r *random.Rand, _ map[string]any) (any, error) {
	return strings.Join(Words(r, r.Int(1, 4)), "-"), nil
}

func regex(r *random.Rand, _ map[string]any) (any, error) {
	return fmt.Sprintf("^[a-z]{%d,%d}\\d*$", r.Int(1, 3), r.Int(4, 8)), nil
}
