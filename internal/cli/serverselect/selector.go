package serverselect

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog/log"

	"github.com/branchd-dev/authsession/internal/cli/config"
	"github.com/branchd-dev/authsession/internal/cli/userconfig"
)

// Prompter picks one server out of several
type Prompter func(projectConfig *config.Config) (*config.Server, error)

// ResolveServer determines which server to use based on the following priority:
// 1. If serverAlias is provided, use that server
// 2. If the user selected a server earlier, use that
// 3. If only one server is configured, use that
// 4. Otherwise, ask prompt
func ResolveServer(projectConfig *config.Config, serverAlias string, prompt Prompter) (*config.Server, error) {
	if serverAlias != "" {
		return GetServerByURLOrAlias(projectConfig, serverAlias)
	}

	selectedURL, err := userconfig.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		server, err := projectConfig.GetServerByURL(selectedURL)
		if err == nil {
			return server, nil
		}
		// Selected server no longer exists in project config
		_ = userconfig.SetSelectedServer("")
	}

	var server *config.Server
	switch {
	case len(projectConfig.Servers) == 0:
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	case len(projectConfig.Servers) == 1:
		server = &projectConfig.Servers[0]
	default:
		if prompt == nil {
			prompt = PromptServerSelection
		}
		server, err = prompt(projectConfig)
		if err != nil {
			return nil, err
		}
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		log.Warn().Err(err).Msg("Failed to save selected server")
	}
	return server, nil
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		server := &projectConfig.Servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", server.Alias, server.URL),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}

// GetServerByURLOrAlias finds a server by URL or alias
func GetServerByURLOrAlias(cfg *config.Config, urlOrAlias string) (*config.Server, error) {
	if server, err := cfg.GetServerByURL(urlOrAlias); err == nil {
		return server, nil
	}
	if server, err := cfg.GetServerByAlias(urlOrAlias); err == nil {
		return server, nil
	}
	return nil, fmt.Errorf("server with URL or alias '%s' not found", urlOrAlias)
}
