package metadata

import (
	"regexp"
	"strconv"
	"strings"
)

// normalizeSubjectID trims whitespace and lowercases nothing — subject ids
// are taken verbatim since they are often case-sensitive lab conventions.
func normalizeSubjectID(raw string) string {
	return strings.TrimSpace(raw)
}

var titlePrefixes = []string{"dr.", "dr", "prof.", "prof", "mr.", "mr", "mrs.", "mrs", "ms.", "ms"}

// normalizeExperimenter turns "Dr. Jane Smith" into "Smith, Jane". Already
// normalized input ("Smith, Jane") passes through unchanged, so repeated
// application is idempotent.
func normalizeExperimenter(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if strings.Contains(s, ",") {
		// Already in "Last, First" form.
		parts := strings.SplitN(s, ",", 2)
		return strings.TrimSpace(parts[0]) + ", " + strings.TrimSpace(parts[1])
	}

	words := strings.Fields(s)
	var cleaned []string
	for _, w := range words {
		lower := strings.ToLower(w)
		isTitle := false
		for _, t := range titlePrefixes {
			if lower == t {
				isTitle = true
				break
			}
		}
		if !isTitle {
			cleaned = append(cleaned, w)
		}
	}
	if len(cleaned) < 2 {
		return strings.Join(cleaned, " ")
	}

	last := cleaned[len(cleaned)-1]
	first := strings.Join(cleaned[:len(cleaned)-1], " ")
	return last + ", " + first
}

var institutionAbbreviations = map[string]string{
	"mit":     "Massachusetts Institute of Technology",
	"ucsf":    "University of California, San Francisco",
	"ucla":    "University of California, Los Angeles",
	"caltech": "California Institute of Technology",
	"nih":     "National Institutes of Health",
	"cshl":    "Cold Spring Harbor Laboratory",
}

// normalizeInstitution expands a known abbreviation to its full name;
// unrecognized input passes through unchanged, and a full name passed back
// in does not match any abbreviation key so it is also a fixed point.
func normalizeInstitution(raw string) string {
	s := strings.TrimSpace(raw)
	if full, ok := institutionAbbreviations[strings.ToLower(s)]; ok {
		return full
	}
	return s
}

var sexWords = map[string]string{
	"male": "M", "m": "M",
	"female": "F", "f": "F",
	"unknown": "U", "u": "U",
	"other": "O", "o": "O",
}

// normalizeSex maps free text to the NWB-required {M,F,U,O} code set.
// Already-coded input ("M") maps to itself, so this is idempotent.
func normalizeSex(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if code, ok := sexWords[s]; ok {
		return code
	}
	// Unrecognized text defaults to Unknown rather than propagating
	// free-form prose into a field NWB constrains to four codes.
	if s == "" {
		return ""
	}
	return "U"
}

var speciesColloquial = map[string]string{
	"mouse": "Mus musculus", "mice": "Mus musculus",
	"rat": "Rattus norvegicus", "rats": "Rattus norvegicus",
	"macaque": "Macaca mulatta",
	"zebrafish": "Danio rerio",
	"human": "Homo sapiens",
}

var strainSuffixRe = regexp.MustCompile(`(?i)\b(mouse|mice|rat|rats|macaque|zebrafish|human)\b`)

// normalizeSpecies extracts the species noun from a colloquial phrase like
// "C57BL/6 mouse" and maps it to its binomial name. A value already in
// binomial form (contains a space and no recognized colloquial word)
// passes through unchanged.
func normalizeSpecies(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	match := strainSuffixRe.FindString(s)
	if match == "" {
		return s
	}
	if binomial, ok := speciesColloquial[strings.ToLower(match)]; ok {
		return binomial
	}
	return s
}

var (
	isoAgeRe    = regexp.MustCompile(`(?i)^P(\d+)([YMWD])$`)
	bareDaysRe  = regexp.MustCompile(`(?i)^P?(\d+)$`)
	phraseAgeRe = regexp.MustCompile(`(?i)(\d+)\s*(day|week|month|year)s?`)
)

// normalizeAge converts an age phrase to an ISO-8601 duration (NWB's
// Subject.age format). Input already in ISO form (e.g. "P60D") passes
// through unchanged, making this idempotent.
func normalizeAge(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if isoAgeRe.MatchString(s) {
		return strings.ToUpper(s)
	}
	if m := bareDaysRe.FindStringSubmatch(s); m != nil {
		return "P" + m[1] + "D"
	}
	if m := phraseAgeRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := map[string]string{"day": "D", "week": "W", "month": "M", "year": "Y"}[strings.ToLower(m[2])]
		return "P" + strconv.Itoa(n) + unit
	}
	return s
}
