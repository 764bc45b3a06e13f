package intents

import (
	"github.com/morezero/intents-registry/pkg/controller"
)

const testServerRoot = "/srv/rain"

func testModule() *ModuleDescriptor {
	return &ModuleDescriptor{
		ID:      "test-module",
		Version: "1.0",
		URL:     "/mocked/path",
		Views: []View{
			{ViewID: "view1", View: "/htdocs/view1.html"},
			{ViewID: "view2", View: "/htdocs/view2.html"},
		},
	}
}

func viewIntent() IntentDeclaration {
	return IntentDeclaration{
		Action:   "com.1and1.intents.general.SEND_MAIL",
		Category: "com.1and1.controlpanel.mail",
		Type:     TypeView,
		Provider: "view1",
	}
}

func serverIntent() IntentDeclaration {
	return IntentDeclaration{
		Action:   "com.1and1.intents.general.DO_SERVER_LOG",
		Category: "com.1and1.controlpanel.logging",
		Type:     TypeServer,
		Provider: "/controllers/logging.js",
		Method:   "doLogging",
	}
}

// loggingLoader serves the controller the server intent fixture points at.
func loggingLoader() *controller.StaticLoader {
	return controller.NewStaticLoader().Add(
		testServerRoot+"/mocked/path/controllers/logging.js",
		controller.Methods{"doLogging": func() {}},
	)
}

func newTestRegistry(loader controller.Loader) *Registry {
	if loader == nil {
		loader = controller.NewStaticLoader()
	}
	return NewRegistry(NewRegistryParams{
		Config: Config{ServerRoot: testServerRoot},
		Loader: loader,
	})
}
