package responder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule maps a set of trigger keywords to a canned response. Keywords match
// case-insensitively as substrings of the user message.
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Response string   `yaml:"response"`
}

// SuggestionRule maps trigger keywords to follow-up suggestion chips.
type SuggestionRule struct {
	Keywords []string `yaml:"keywords"`
	Chips    []string `yaml:"chips"`
}

// RuleSet is the full rule table: intent patterns evaluated first, then
// generic fallbacks, then the deferral string.
type RuleSet struct {
	Patterns    []Rule           `yaml:"patterns"`
	Fallbacks   []Rule           `yaml:"fallbacks"`
	Deferral    string           `yaml:"deferral"`
	Suggestions []SuggestionRule `yaml:"suggestions"`
}

// MaxSuggestions caps the suggestion chips returned per message.
const MaxSuggestions = 3

// RuleResponder answers from an ordered rule table. It never returns an
// error; an unmatched message gets the deferral response.
type RuleResponder struct {
	rules RuleSet
}

// NewRuleResponder builds a responder from the given rule set. Empty
// sections fall back to the built-in defaults.
func NewRuleResponder(rules RuleSet) *RuleResponder {
	def := DefaultRules()
	if len(rules.Patterns) == 0 {
		rules.Patterns = def.Patterns
	}
	if len(rules.Fallbacks) == 0 {
		rules.Fallbacks = def.Fallbacks
	}
	if rules.Deferral == "" {
		rules.Deferral = def.Deferral
	}
	if len(rules.Suggestions) == 0 {
		rules.Suggestions = def.Suggestions
	}
	return &RuleResponder{rules: rules}
}

// LoadRules parses a YAML rule file.
func LoadRules(path string) (RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("responder: read rules: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("responder: parse rules: %w", err)
	}
	return rs, nil
}

// Reply scans patterns, then fallbacks, then answers with the deferral.
func (g *RuleResponder) Reply(_ context.Context, _ string, text string) (string, error) {
	lower := strings.ToLower(text)
	for _, r := range g.rules.Patterns {
		if matchAny(lower, r.Keywords) {
			return r.Response, nil
		}
	}
	for _, r := range g.rules.Fallbacks {
		if matchAny(lower, r.Keywords) {
			return r.Response, nil
		}
	}
	return g.rules.Deferral, nil
}

// Suggest returns up to MaxSuggestions follow-up chips for the message.
func (g *RuleResponder) Suggest(text string) []string {
	lower := strings.ToLower(text)
	var chips []string
	for _, r := range g.rules.Suggestions {
		if !matchAny(lower, r.Keywords) {
			continue
		}
		for _, c := range r.Chips {
			chips = append(chips, c)
			if len(chips) == MaxSuggestions {
				return chips
			}
		}
	}
	return chips
}

func matchAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// DefaultRules is the built-in Portuguese support rule table.
func DefaultRules() RuleSet {
	return RuleSet{
		Patterns: []Rule{
			{
				Keywords: []string{"horário", "horario", "funcionamento", "aberto"},
				Response: "Nosso atendimento funciona de segunda a sexta, das 8h às 18h.",
			},
			{
				Keywords: []string{"entrega", "prazo", "rastrear", "rastreio", "frete"},
				Response: "O prazo de entrega padrão é de 5 a 10 dias úteis. Você pode acompanhar seu pedido pelo código de rastreio enviado por e-mail.",
			},
			{
				Keywords: []string{"pagamento", "boleto", "cartão", "cartao", "pix", "parcelar"},
				Response: "Aceitamos cartão de crédito, boleto e Pix. O parcelamento vai em até 12 vezes sem juros.",
			},
			{
				Keywords: []string{"troca", "devolução", "devolucao", "devolver", "defeito"},
				Response: "Trocas e devoluções podem ser solicitadas em até 30 dias após o recebimento. Me informe o número do pedido para iniciar.",
			},
			{
				Keywords: []string{"pedido", "status", "compra"},
				Response: "Para consultar o status do seu pedido, me informe o número dele, por favor.",
			},
			{
				Keywords: []string{"preço", "preco", "valor", "quanto custa", "desconto"},
				Response: "Os preços e promoções atuais estão disponíveis no nosso site. Posso ajudar com algum produto específico?",
			},
			{
				Keywords: []string{"cancelar", "cancelamento"},
				Response: "Pedidos ainda não enviados podem ser cancelados. Me informe o número do pedido que você deseja cancelar.",
			},
		},
		Fallbacks: []Rule{
			{
				Keywords: []string{"olá", "ola", "oi", "bom dia", "boa tarde", "boa noite"},
				Response: "Olá! Como posso ajudar você hoje?",
			},
			{
				Keywords: []string{"obrigado", "obrigada", "valeu"},
				Response: "De nada! Se precisar de mais alguma coisa, é só chamar.",
			},
			{
				Keywords: []string{"tchau", "até logo", "ate logo", "encerrar"},
				Response: "Obrigado pelo contato! Tenha um ótimo dia.",
			},
		},
		Deferral: "Desculpe, não consegui entender sua pergunta. Pode reformular? Se preferir, posso transferir você para um atendente.",
		Suggestions: []SuggestionRule{
			{
				Keywords: []string{"pedido", "entrega", "rastrear", "prazo"},
				Chips:    []string{"Rastrear pedido", "Prazo de entrega", "Falar sobre outro pedido"},
			},
			{
				Keywords: []string{"pagamento", "boleto", "cartão", "cartao", "pix"},
				Chips:    []string{"Formas de pagamento", "Segunda via de boleto", "Parcelamento"},
			},
			{
				Keywords: []string{"troca", "devolução", "devolucao", "defeito"},
				Chips:    []string{"Solicitar troca", "Política de devolução", "Produto com defeito"},
			},
			{
				Keywords: []string{"produto", "preço", "preco", "valor"},
				Chips:    []string{"Ver promoções", "Disponibilidade", "Detalhes do produto"},
			},
		},
	}
}
