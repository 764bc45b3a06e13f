package intents

import "fmt"

// ResolveView finds the view named by decl.Provider in md.
func ResolveView(md *ModuleDescriptor, decl IntentDeclaration) (*ViewRef, error) {
	for _, v := range md.Views {
		if v.ViewID == decl.Provider {
			return &ViewRef{ViewID: v.ViewID, View: v.View, Module: md}, nil
		}
	}
	return nil, &IntentError{
		Code:    CodeViewNotFound,
		Message: fmt.Sprintf("view %q not found in module %s", decl.Provider, md.Identity()),
	}
}
