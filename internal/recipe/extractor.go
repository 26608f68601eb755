package recipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
)

// Extractor pulls structured recipes out of free-form assistant responses
// using layered regex heuristics. It is deliberately forgiving: a field the
// text does not mention is simply left at its zero value.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// sectionStartRe marks boundaries between recipes in a multi-recipe
// response: a numbered item, a "**Recipe N" heading, or any bold heading
// at the start of a line. Matches include the leading newline, so the
// split point sits one byte in.
var sectionStartRe = regexp.MustCompile(`\n(?:\d+\.\s|\*\*Recipe\s+\d+|\*\*\w)`)

// metadataHeadingRe identifies bold lines that are recipe metadata or block
// headers rather than new-recipe headings, so "**Servings:** 4" stays with
// the recipe it belongs to instead of starting a section of its own.
var metadataHeadingRe = regexp.MustCompile(`(?i)^\*\*(?:prep(?:aration)?\s*time|cook(?:ing)?\s*time|total\s*time|serv(?:es|ings?)|difficulty|calories|ingredients|instructions|directions|method)`)

var titleRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)

var (
	prepTimeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)prep(?:aration)?\s*time:?\s*(\d+)\s*(?:min|minutes?)`),
		regexp.MustCompile(`(?i)\*\*prep(?:aration)?\s*time:?\*\*\s*(\d+)\s*(?:min|minutes?)`),
	}
	cookTimeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)cook(?:ing)?\s*time:?\s*(\d+)\s*(?:min|minutes?)`),
		regexp.MustCompile(`(?i)\*\*cook(?:ing)?\s*time:?\*\*\s*(\d+)\s*(?:min|minutes?)`),
	}
	totalTimeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total\s*time:?\s*(\d+)\s*(?:min|minutes?)`),
		regexp.MustCompile(`(?i)\*\*total\s*time:?\*\*\s*(\d+)\s*(?:min|minutes?)`),
	}

	// Ordered most specific first so "Servings: 4" is not half-matched by
	// the looser forms.
	servingsRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\*\*servings:\*\*\s*(\d+)`),
		regexp.MustCompile(`(?i)\*\*serv(?:es|ings?):\*\*\s*(\d+)`),
		regexp.MustCompile(`(?i)serves?\s+(\d+)`),
		regexp.MustCompile(`(?i)serv(?:es|ings?):?\s*(\d+)`),
	}

	caloriesRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\*\*calories:\*\*\s*(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s*calories?`),
		regexp.MustCompile(`(?i)calories?:?\s*(\d+)`),
	}

	difficultyBeginnerRe     = regexp.MustCompile(`(?i)\b(beginner|easy|simple)\b`)
	difficultyIntermediateRe = regexp.MustCompile(`(?i)\b(intermediate|medium|moderate)\b`)
	difficultyAdvancedRe     = regexp.MustCompile(`(?i)\b(advanced|hard|difficult|expert)\b`)

	bulletRe      = regexp.MustCompile(`^[-*•]\s*`)
	stepNumberRe  = regexp.MustCompile(`^\d+\.\s*`)
	boldHeadingRe = regexp.MustCompile(`^\*\*.*?\*\*\s*`)
)

// Parse extracts every recipe found in text. Citations are assigned
// positionally: section i gets citation i as its primary source; sections
// beyond the citation list fall back to the first citation when one exists.
func (e *Extractor) Parse(text string, citations []assistant.Citation) []*Recipe {
	var recipes []*Recipe
	for i, section := range splitSections(text) {
		r := e.parseSection(i, section)
		if r == nil {
			continue
		}
		if len(citations) > 0 {
			c := citations[0]
			if i < len(citations) {
				c = citations[i]
			}
			r.PrimarySource = &c
		}
		recipes = append(recipes, r)
	}
	return recipes
}

// splitSections breaks a response into per-recipe chunks at section start
// markers. Text with no markers is a single section.
func splitSections(text string) []string {
	marks := sectionStartRe.FindAllStringIndex(text, -1)
	if len(marks) == 0 {
		return []string{text}
	}

	var sections []string
	prev := 0
	for _, m := range marks {
		// Cut after the newline so the heading stays with its section.
		cut := m[0] + 1
		if metadataHeadingRe.MatchString(text[cut:]) {
			continue
		}
		if chunk := strings.TrimSpace(text[prev:cut]); chunk != "" {
			sections = append(sections, chunk)
		}
		prev = cut
	}
	if chunk := strings.TrimSpace(text[prev:]); chunk != "" {
		sections = append(sections, chunk)
	}
	return sections
}

// parseSection extracts one recipe from a section. Every non-empty section
// yields a recipe draft, except bare numbered-step fragments split off an
// unindented step list.
func (e *Extractor) parseSection(index int, section string) *Recipe {
	if stepFragment(section) {
		return nil
	}

	r := NewRecipe(extractTitle(index, section))
	r.Description = extractDescription(section)
	r.Ingredients = extractIngredients(section)
	r.Instructions = extractInstructions(section)
	r.PrepTimeMinutes = firstNumber(section, prepTimeRes)
	r.CookTimeMinutes = firstNumber(section, cookTimeRes)
	r.TotalTimeMinutes = firstNumber(section, totalTimeRes)
	r.Servings = firstNumber(section, servingsRes)
	r.Difficulty = extractDifficulty(section)
	r.Cuisine = extractCuisine(section)
	r.DietaryRestrictions = extractDietary(section)
	r.Calories = firstNumber(section, caloriesRes)
	return r
}

// stepFragment reports whether every non-empty line of the section is a
// numbered step.
func stepFragment(section string) bool {
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !stepNumberRe.MatchString(line) {
			return false
		}
	}
	return true
}

func extractTitle(index int, section string) string {
	if m := titleRe.FindStringSubmatch(section); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, line := range strings.Split(section, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return stepNumberRe.ReplaceAllString(line, "")
		}
	}
	return fmt.Sprintf("Recipe %d", index+1)
}

// extractDescription gathers up to five non-empty lines after the title,
// stopping at recognizable recipe structure.
func extractDescription(section string) string {
	lines := strings.Split(section, "\n")
	if len(lines) < 2 {
		return ""
	}

	var desc []string
	for _, line := range lines[1:] {
		if len(desc) == 5 {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "ingredients:") ||
			strings.HasPrefix(lower, "instructions:") ||
			strings.HasPrefix(lower, "prep time:") {
			break
		}
		desc = append(desc, line)
	}
	return strings.Join(desc, " ")
}

func extractIngredients(section string) []string {
	lines := strings.Split(section, "\n")
	var out []string
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(strings.Trim(trimmed, "*"))

		if strings.HasPrefix(lower, "ingredients:") || lower == "ingredients" {
			inBlock = true
			continue
		}
		if inBlock && (strings.HasPrefix(lower, "instructions:") || lower == "instructions" ||
			strings.HasPrefix(lower, "directions:") || lower == "directions" ||
			strings.HasPrefix(lower, "method:") || lower == "method") {
			break
		}
		if !inBlock || trimmed == "" {
			continue
		}
		item := bulletRe.ReplaceAllString(trimmed, "")
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// metadataLine reports whether a line inside an instructions block is a
// stray metadata line rather than a cooking step.
func metadataLine(lower string) bool {
	for _, prefix := range []string{
		"prep time:", "cook time:", "total time:",
		"servings:", "difficulty:", "calories:",
	} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func extractInstructions(section string) []string {
	lines := strings.Split(section, "\n")
	var out []string
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(strings.Trim(trimmed, "*"))

		if strings.HasPrefix(lower, "instructions:") || lower == "instructions" ||
			strings.HasPrefix(lower, "directions:") || lower == "directions" ||
			strings.HasPrefix(lower, "method:") || lower == "method" {
			inBlock = true
			continue
		}
		if !inBlock || trimmed == "" {
			continue
		}
		if metadataLine(lower) {
			continue
		}
		step := stepNumberRe.ReplaceAllString(trimmed, "")
		step = boldHeadingRe.ReplaceAllString(step, "")
		if step != "" {
			out = append(out, step)
		}
	}
	return out
}

func firstNumber(section string, patterns []*regexp.Regexp) int {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(section); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

func extractDifficulty(section string) Difficulty {
	switch {
	case difficultyBeginnerRe.MatchString(section):
		return DifficultyBeginner
	case difficultyIntermediateRe.MatchString(section):
		return DifficultyIntermediate
	case difficultyAdvancedRe.MatchString(section):
		return DifficultyAdvanced
	}
	return ""
}

// extractCuisine returns the first cuisine, in declaration order, whose
// name appears anywhere in the section.
func extractCuisine(section string) Cuisine {
	lower := strings.ToLower(section)
	for _, c := range Cuisines() {
		name := strings.ReplaceAll(string(c), "_", " ")
		if strings.Contains(lower, name) {
			return c
		}
	}
	return ""
}

// extractDietary returns every dietary restriction mentioned in the
// section, accepting spaces or hyphens in the restriction name.
func extractDietary(section string) []DietaryRestriction {
	lower := strings.ToLower(section)
	var out []DietaryRestriction
	for _, d := range DietaryRestrictions() {
		spaced := strings.ReplaceAll(string(d), "_", " ")
		hyphened := strings.ReplaceAll(string(d), "_", "-")
		if strings.Contains(lower, spaced) || strings.Contains(lower, hyphened) {
			out = append(out, d)
		}
	}
	return out
}
