package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/konveyor-ecosystem/migsy/pkg/version"
)

// systemInfoHandler handles GET /api/v1/system/info. It describes the
// loaded configuration: agents, their toolsets and the model providers.
// Credentials and URLs are not included.
func (s *Server) systemInfoHandler(c *gin.Context) {
	agents := make([]AgentInfo, 0, s.cfg.Agents.Len())
	for name, def := range s.cfg.Agents.GetAll() {
		toolsets := make([]string, 0, len(def.Toolsets))
		for _, ts := range def.Toolsets {
			toolsets = append(toolsets, string(ts))
		}
		agents = append(agents, AgentInfo{
			Name:         name,
			Description:  def.Description,
			Toolsets:     toolsets,
			OutputSchema: string(def.OutputSchema),
		})
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })

	providers := make([]ProviderInfo, 0, s.cfg.LLMProviders.Len())
	for name, def := range s.cfg.LLMProviders.GetAll() {
		providers = append(providers, ProviderInfo{
			Name:  name,
			Type:  string(def.Type),
			Model: def.Model,
		})
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].Name < providers[j].Name })

	c.JSON(http.StatusOK, SystemInfoResponse{
		Name:         version.AppName,
		Version:      version.GitCommit,
		DefaultAgent: s.cfg.Defaults.Agent,
		Agents:       agents,
		LLMProviders: providers,
	})
}
