package commsutil

import (
	"strings"
)

// Default COMMS subjects.
const (
	SubjectIntents         = "intents.registry.v1"
	SubjectRegisteredEvent = "intents.registered"
)

var subjectTokenReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// SubjectToken makes s safe to use as a single subject token.
func SubjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return subjectTokenReplacer.Replace(s)
}

// BuildRegisteredSubject builds the granular registration event subject for a category/action pair.
func BuildRegisteredSubject(category, action string) string {
	return SubjectRegisteredEvent + "." + SubjectToken(category) + "." + SubjectToken(action)
}
