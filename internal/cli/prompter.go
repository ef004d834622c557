package cli

import (
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Prompter asks the operator questions. Input re-asks until validate
// returns nil.
type Prompter interface {
	Select(message string, options []string, defaultIndex int) (int, error)
	MultiSelect(message string, options []string) ([]int, error)
	Input(message, defaultValue string, validate func(string) error) (string, error)
	Password(message string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter prompts on a terminal.
type SurveyPrompter struct {
	opt survey.AskOpt
}

var _ Prompter = (*SurveyPrompter)(nil)

// NewSurveyPrompter prompts on the given streams.
func NewSurveyPrompter(in terminal.FileReader, out terminal.FileWriter, errOut io.Writer) *SurveyPrompter {
	return &SurveyPrompter{opt: survey.WithStdio(in, out, errOut)}
}

func (s *SurveyPrompter) Select(message string, options []string, defaultIndex int) (int, error) {
	prompt := &survey.Select{Message: message, Options: options}
	if defaultIndex >= 0 && defaultIndex < len(options) {
		prompt.Default = options[defaultIndex]
	}
	var i int
	if err := survey.AskOne(prompt, &i, s.opt); err != nil {
		return 0, err
	}
	return i, nil
}

func (s *SurveyPrompter) MultiSelect(message string, options []string) ([]int, error) {
	var picked []string
	if err := survey.AskOne(&survey.MultiSelect{Message: message, Options: options}, &picked, s.opt); err != nil {
		return nil, err
	}
	var idx []int
	for i, o := range options {
		for _, p := range picked {
			if o == p {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx, nil
}

func (s *SurveyPrompter) Input(message, defaultValue string, validate func(string) error) (string, error) {
	var answer string
	opts := []survey.AskOpt{s.opt}
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			str, _ := ans.(string)
			return validate(str)
		}))
	}
	err := survey.AskOne(&survey.Input{Message: message, Default: defaultValue}, &answer, opts...)
	return answer, err
}

func (s *SurveyPrompter) Password(message string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Password{Message: message}, &answer, s.opt)
	return answer, err
}

func (s *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	var answer bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: defaultValue}, &answer, s.opt)
	return answer, err
}
