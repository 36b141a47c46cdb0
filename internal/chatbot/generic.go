package chatbot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"chat-assistant/backend/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	GenericPluginName     = "generic_chatbot"
	genericPluginPriority = 10
)

// KeywordResponse pairs a trigger keyword with the reply it produces
type KeywordResponse struct {
	Keyword  string `yaml:"keyword"`
	Response string `yaml:"response"`
}

// DefaultResponses is the built-in table, checked in order
var DefaultResponses = []KeywordResponse{
	{Keyword: "hello", Response: "Hi there! How can I help you today?"},
	{Keyword: "hi", Response: "Hello! What can I do for you?"},
	{Keyword: "help", Response: "I can assist you with various tasks. What do you need?"},
	{Keyword: "bye", Response: "Goodbye! Have a great day!"},
	{Keyword: "thanks", Response: "You're welcome! Happy to help!"},
	{Keyword: "thank you", Response: "You're welcome! Is there anything else I can help with?"},
}

// LoadResponses reads a YAML list of keyword/response pairs from path
func LoadResponses(path string) ([]KeywordResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responses file: %w", err)
	}

	var table []KeywordResponse
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse responses file %s: %w", path, err)
	}

	if len(table) == 0 {
		return nil, fmt.Errorf("responses file %s is empty", path)
	}
	for i, kr := range table {
		if strings.TrimSpace(kr.Keyword) == "" || strings.TrimSpace(kr.Response) == "" {
			return nil, fmt.Errorf("responses file %s: entry %d needs both keyword and response", path, i)
		}
	}

	return table, nil
}

// GenericPlugin answers greetings and courtesy phrases from a keyword table
type GenericPlugin struct {
	*Responder
	responses []KeywordResponse
	keywords  []string
}

// NewGenericPlugin creates the plugin. An empty table selects DefaultResponses.
func NewGenericPlugin(deps Deps, responses []KeywordResponse) *GenericPlugin {
	if len(responses) == 0 {
		responses = DefaultResponses
	}

	table := make([]KeywordResponse, len(responses))
	keywords := make([]string, len(responses))
	for i, kr := range responses {
		table[i] = KeywordResponse{Keyword: strings.ToLower(kr.Keyword), Response: kr.Response}
		keywords[i] = table[i].Keyword
	}

	return &GenericPlugin{
		Responder: NewResponder(GenericPluginName, GenericPluginName, deps),
		responses: table,
		keywords:  keywords,
	}
}

func (p *GenericPlugin) Priority() int {
	return genericPluginPriority
}

func (p *GenericPlugin) Supports(msg *models.Message) bool {
	if !p.Responder.Supports(msg) {
		return false
	}
	return ContainsKeyword(msg.Content, p.keywords)
}

// Process replies with the first table entry whose keyword occurs in msg
func (p *GenericPlugin) Process(ctx context.Context, msg *models.Message) error {
	content := Normalize(msg.Content)

	for _, kr := range p.responses {
		if strings.Contains(content, kr.Keyword) {
			_, err := p.Reply(ctx, msg, kr.Response)
			return err
		}
	}

	return nil
}
