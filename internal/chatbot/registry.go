package chatbot

import "time"

// BuiltinPlugins returns the bundled plugins. An empty responses table keeps
// the generic plugin's defaults.
func BuiltinPlugins(deps Deps, location *time.Location, responses []KeywordResponse) []Plugin {
	return []Plugin{
		NewGenericPlugin(deps, responses),
		NewDateTimePlugin(deps, location),
	}
}
