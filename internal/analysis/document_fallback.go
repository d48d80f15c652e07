package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

var (
	docDateRe  = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	docValueRe = regexp.MustCompile(`R\$\s*(\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?|\d+(?:,\d{1,2})?)`)
	docEmailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)
	// A hyphen is required so amounts and dates never read as phones.
	docPhoneRe = regexp.MustCompile(`(?:\(\d{2}\)\s?|\b\d{2}\s)?\b9?\d{4}-\d{4}\b`)
	docCEPRe   = regexp.MustCompile(`\b\d{5}-\d{3}\b`)
)

const snippetRadius = 40

// ExtractKeyInformationFallback finds dates, BRL amounts, contacts and
// CEP-anchored addresses with regular expressions.
func ExtractKeyInformationFallback(text string) models.KeyInformation {
	info := models.KeyInformation{
		Dates:     []models.DateInfo{},
		Values:    []models.ValueInfo{},
		Contacts:  []models.Contact{},
		Addresses: []string{},
	}
	if text == "" {
		return info
	}

	for _, loc := range docDateRe.FindAllStringIndex(text, -1) {
		date := text[loc[0]:loc[1]]
		if _, ok := ParseBRDate(date); !ok {
			continue
		}
		info.Dates = append(info.Dates, models.DateInfo{Date: date, Context: snippet(text, loc[0], loc[1])})
	}

	for _, loc := range docValueRe.FindAllStringSubmatchIndex(text, -1) {
		amount, ok := ParseBRL(text[loc[2]:loc[3]])
		if !ok || amount.IsZero() {
			continue
		}
		info.Values = append(info.Values, models.ValueInfo{
			Amount:  amount.Round(2).InexactFloat64(),
			Raw:     text[loc[0]:loc[1]],
			Context: snippet(text, loc[0], loc[1]),
		})
	}

	seen := map[string]bool{}
	for _, email := range docEmailRe.FindAllString(text, -1) {
		key := strings.ToLower(email)
		if seen[key] {
			continue
		}
		seen[key] = true
		info.Contacts = append(info.Contacts, models.Contact{Email: email, Role: "contato"})
	}
	for _, phone := range docPhoneRe.FindAllString(text, -1) {
		phone = strings.TrimSpace(phone)
		if seen[phone] {
			continue
		}
		seen[phone] = true
		attached := false
		for i := range info.Contacts {
			if info.Contacts[i].Phone == "" {
				info.Contacts[i].Phone = phone
				attached = true
				break
			}
		}
		if !attached {
			info.Contacts = append(info.Contacts, models.Contact{Phone: phone, Role: "contato"})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if !docCEPRe.MatchString(line) {
			continue
		}
		addr := strings.Join(strings.Fields(line), " ")
		if utf8.RuneCountInString(addr) > 200 {
			addr = string([]rune(addr)[:200])
		}
		info.Addresses = append(info.Addresses, addr)
	}

	return info
}

type requirementCategory struct {
	name     string
	keywords []string
}

// Checked in order; the first category with a matching keyword wins.
var requirementCategories = []requirementCategory{
	{"habilitação jurídica", []string{"contrato social", "ato constitutivo", "registro comercial", "estatuto"}},
	{"regularidade fiscal", []string{"certidão", "certidao", "fgts", "regularidade fiscal", "débitos trabalhistas", "cndt"}},
	{"qualificação técnica", []string{"atestado", "capacidade técnica", "qualificação técnica", "acervo técnico", "crea", "cau"}},
	{"qualificação econômico-financeira", []string{"balanço patrimonial", "patrimônio líquido", "falência", "índices contábeis", "capital social"}},
	{"proposta", []string{"proposta", "planilha de preços", "prazo de validade"}},
}

var requirementTriggers = []string{
	"deverá", "deverão", "deve apresentar", "devem apresentar", "obrigatório", "obrigatória",
	"exigido", "exigida", "exige-se", "comprovação", "apresentar",
}

var mandatoryMarkers = []string{"deverá", "deverão", "deve ", "devem ", "obrigatório", "obrigatória", "exigido", "exigida", "exige-se", "sob pena"}

const maxFallbackRequirements = 30

// ExtractRequirementsFallback keeps the lines that read like bidding
// requirements and files them under a category by keyword.
func ExtractRequirementsFallback(text string) []models.Requirement {
	reqs := []models.Requirement{}
	seen := map[string]bool{}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.Join(strings.Fields(raw), " ")
		if utf8.RuneCountInString(line) < 15 {
			continue
		}
		lower := strings.ToLower(line)
		if !containsAny(lower, requirementTriggers) {
			continue
		}

		category := "geral"
		for _, c := range requirementCategories {
			if containsAny(lower, c.keywords) {
				category = c.name
				break
			}
		}
		if category == "geral" && !strings.Contains(lower, "habilitação") {
			continue
		}

		if utf8.RuneCountInString(line) > 300 {
			line = string([]rune(line)[:300])
		}
		if seen[line] {
			continue
		}
		seen[line] = true

		reqs = append(reqs, models.Requirement{
			Category:    category,
			Requirement: line,
			Mandatory:   containsAny(lower, mandatoryMarkers),
		})
		if len(reqs) == maxFallbackRequirements {
			break
		}
	}
	return reqs
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// snippet returns the text around [start,end) on rune boundaries.
func snippet(text string, start, end int) string {
	from := start - snippetRadius
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := end + snippetRadius
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return strings.Join(strings.Fields(text[from:to]), " ")
}
