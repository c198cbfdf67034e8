package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// PromptForRequest asks for the enrichment prompt interactively when
// none was given on the command line.
func PromptForRequest() (string, error) {
	var request string
	prompt := &survey.Input{
		Message: "Describe the financial instrument to enrich:",
		Help:    "Free-form text, e.g. \"I bought 10 shares of Apple\" or \"Analyze Siemens bonds\"",
	}

	err := survey.AskOne(prompt, &request, survey.WithValidator(func(val interface{}) error {
		str, _ := val.(string)
		if strings.TrimSpace(str) == "" {
			return fmt.Errorf("prompt cannot be empty")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(request), nil
}
