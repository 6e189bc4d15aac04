package entity

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
	ChangeText     ChangeType = "text"
)

// DOMChange is one reduced, deduplicated change inside an observation window.
type DOMChange struct {
	Type        ChangeType `json:"type"`
	Target      string     `json:"target"`
	Attribute   string     `json:"attribute,omitempty"`
	Description string     `json:"description"`
}

type ChangeReport struct {
	Mutations      []DOMChange `json:"mutations"`
	VerbalFeedback string      `json:"verbalFeedback"`
	URLChanged     bool        `json:"urlChanged"`
	NewURL         string      `json:"newUrl,omitempty"`
	TitleChanged   bool        `json:"titleChanged"`
	NewTitle       string      `json:"newTitle,omitempty"`
}

type MutationKind string

const (
	MutationChildList     MutationKind = "childList"
	MutationAttributes    MutationKind = "attributes"
	MutationCharacterData MutationKind = "characterData"
)

// NodeInfo is the part of a node a mutation record carries.
type NodeInfo struct {
	Tag   string `json:"tag"`
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`
	Role  string `json:"role,omitempty"`
	Text  string `json:"text,omitempty"`
}

// MutationRecord is a raw mutation event as captured by a MutationSource.
type MutationRecord struct {
	Kind          MutationKind `json:"kind"`
	Target        NodeInfo     `json:"target"`
	Added         []NodeInfo   `json:"added,omitempty"`
	Removed       []NodeInfo   `json:"removed,omitempty"`
	AttributeName string       `json:"attributeName,omitempty"`
	OldValue      string       `json:"oldValue,omitempty"`
}

type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}
