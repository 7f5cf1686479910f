// Package intent classifies free-text chat messages by keyword matching.
package intent

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Intent is the classified purpose of a message.
type Intent string

const (
	NewOccurrence Intent = "new_occurrence"
	QueryHistory  Intent = "query_history"
	QueryStatus   Intent = "query_status"
	Greeting      Intent = "greeting"
	Help          Intent = "help"
	General       Intent = "general"
)

// Result holds the intent and the slots extracted from a message.
type Result struct {
	Intent   Intent          // Intent is the highest-priority intent matched
	Category models.Category // Category is set for NewOccurrence only, CategoryNone when unknown
	Contract string          // Contract is the first whole run of 4 or more digits, if any
	Urgent   bool            // Urgent is set for NewOccurrence only
}

type rule[T any] struct {
	value    T
	keywords []string
}

// intentRules are evaluated in order; the first rule with a matching keyword wins.
var intentRules = []rule[Intent]{
	{NewOccurrence, []string{
		"ocorrencia", "problema", "incidente", "falha", "defeito", "abrir", "quebrad", "nao funciona", "parou",
	}},
	{QueryHistory, []string{"historico", "consultar", "buscar", "listar"}},
	{QueryStatus, []string{"status", "situacao", "andamento", "progresso"}},
	{Greeting, []string{"oi", "ola", "bom dia", "boa tarde", "boa noite", "hello"}},
	{Help, []string{"ajuda", "help", "socorro", "como"}},
}

// "rede externa" must be tried before the bare "rede" of conectividade.
var categoryRules = []rule[models.Category]{
	{models.CategoryNapGpon, []string{"nap", "gpon"}},
	{models.CategoryRedeExterna, []string{"rede externa", "fibra", "poste", "cabo"}},
	{models.CategoryEletrica, []string{"eletric", "energia"}},
	{models.CategoryConectividade, []string{"internet", "conectividade", "rede", "sinal"}},
	{models.CategoryManutencao, []string{"manutencao", "reparo"}},
	{models.CategorySeguranca, []string{"seguranca", "acesso", "camera"}},
}

var urgentKeywords = []string{"urgente", "urgencia", "emergencia", "critic"}

// contractPattern takes the whole digit run; callers reject runs longer than
// models.MaxContractLength instead of shortening them.
var contractPattern = regexp.MustCompile(`[0-9]{4,}`)

// Classify maps text to an intent and its slots. It never fails: text without any
// known keyword is General with no slots.
func Classify(text string) Result {
	folded := Fold(text)
	if folded == "" {
		return Result{Intent: General}
	}

	result := Result{Intent: match(intentRules, folded, General)}
	switch result.Intent {
	case NewOccurrence:
		result.Category = match(categoryRules, folded, models.CategoryNone)
		result.Contract = contractPattern.FindString(folded)
		result.Urgent = containsAny(folded, urgentKeywords)
	case QueryHistory, QueryStatus:
		result.Contract = contractPattern.FindString(folded)
	case Greeting, Help, General:
	}

	return result
}

// IsUrgent reports whether text carries one of the urgency keywords.
func IsUrgent(text string) bool {
	return containsAny(Fold(text), urgentKeywords)
}

// Fold lowercases and trims text and strips diacritics, so "Elétrica" becomes "eletrica".
func Fold(text string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func match[T any](rules []rule[T], folded string, fallback T) T {
	for _, r := range rules {
		if containsAny(folded, r.keywords) {
			return r.value
		}
	}
	return fallback
}

func containsAny(folded string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(folded, keyword) {
			return true
		}
	}
	return false
}
