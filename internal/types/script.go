package types

// ElementType is the kind of a script element
type ElementType string

const (
	ElementHeading       ElementType = "heading"
	ElementParagraph     ElementType = "paragraph"
	ElementText          ElementType = "text"
	ElementSelect        ElementType = "select"
	ElementMultiselect   ElementType = "multiselect"
	ElementRadio         ElementType = "radio"
	ElementOutcome       ElementType = "outcome"
	ElementTextarea      ElementType = "textarea"
	ElementTextInput     ElementType = "textInput"
	ElementInput         ElementType = "input"
	ElementCheckbox      ElementType = "checkbox"
	ElementCheckboxGroup ElementType = "checkboxGroup"
	ElementDivider       ElementType = "divider"
)

// Branching reports whether a selected option of this element may redirect navigation
func (t ElementType) Branching() bool {
	return t == ElementRadio || t == ElementOutcome
}

// ElementOption is one choice of a select/radio/outcome element
type ElementOption struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	NextStepID string `json:"nextStepId,omitempty"`
}

// ScriptElement is one block rendered inside a step
type ScriptElement struct {
	ID       string          `json:"id"`
	Type     ElementType     `json:"type"`
	Label    string          `json:"label,omitempty"`
	Content  string          `json:"content,omitempty"`
	Required bool            `json:"required,omitempty"`
	Options  []ElementOption `json:"options,omitempty"`
}

// ScriptStep is one page of a call script
type ScriptStep struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Elements   []ScriptElement `json:"elements"`
	IsEndStep  bool            `json:"isEndStep,omitempty"`
	NextStepID string          `json:"nextStepId,omitempty"`
}

// Script is a campaign call script
type Script struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Steps []ScriptStep `json:"steps"`
}
