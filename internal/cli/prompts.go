package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/CortexSwing/pkg/dataflows"
)

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., PLTR, AAPL, NVDA):",
		Help:    "Letters, numbers, dots and hyphens, up to 10 characters",
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("invalid input")
		}
		return dataflows.ValidateSymbol(dataflows.NormalizeSymbol(str))
	}))
	if err != nil {
		return "", err
	}

	return dataflows.NormalizeSymbol(strings.TrimSpace(ticker)), nil
}

// ConfirmRemove asks before a ticker is dropped from the watchlist.
func ConfirmRemove(ticker string) (bool, error) {
	confirm := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Remove %s from the watchlist?", ticker),
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirm); err != nil {
		return false, err
	}
	return confirm, nil
}
