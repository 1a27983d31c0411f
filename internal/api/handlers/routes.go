package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts every contract operation. public carries the
// health and auth endpoints; protected sits behind the auth gate.
func (s *Server) RegisterRoutes(public, protected gin.IRoutes) {
	public.GET("/health/live", s.GetLiveness)
	public.GET("/health/ready", s.GetReadiness)

	public.POST("/auth/login", s.Login)
	public.POST("/auth/logout", s.Logout)
	public.GET("/auth/session", s.GetSession)

	protected.GET("/templates", s.ListTemplates)
	protected.GET("/instances/:instanceId/domains", s.ListDomains)
	protected.POST("/instances/:instanceId/subscriptions/activate", s.ActivateSubscription)

	protected.POST("/wizard/sessions", s.CreateWizardSession)
	protected.GET("/wizard/sessions/:sessionId", s.GetWizardSession)
	protected.DELETE("/wizard/sessions/:sessionId", s.DeleteWizardSession)
	protected.PUT("/wizard/sessions/:sessionId/template", s.SelectWizardTemplate)
	protected.POST("/wizard/sessions/:sessionId/next", s.NextWizardStep)
	protected.POST("/wizard/sessions/:sessionId/back", s.PreviousWizardStep)
	protected.PATCH("/wizard/sessions/:sessionId/fields", s.UpdateWizardFields)
	protected.POST("/wizard/sessions/:sessionId/availability", s.CheckWizardAvailability)
	protected.POST("/wizard/sessions/:sessionId/deploy", s.DeployWizardSession)
	protected.POST("/wizard/sessions/:sessionId/reset", s.ResetWizardSession)
}
