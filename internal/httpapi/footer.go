package httpapi

import (
	"fmt"
	"html/template"

	"github.com/MarkoPoloResearchLab/velan_e2e/pkg/footer"
)

const (
	footerElementID       = "portal-footer"
	footerBaseClass       = "portal-footer"
	footerInnerClass      = "portal-footer__inner"
	footerBrandClass      = "portal-footer__brand"
	footerLinksClass      = "portal-footer__links"
	footerLinkClass       = "portal-footer__link"
	footerCopyrightYear   = 2025
	footerSessionTemplate = "Signed in as %s (%s)"
)

var footerBaseConfig = footer.Config{
	ElementID:  footerElementID,
	BaseClass:  footerBaseClass,
	InnerClass: footerInnerClass,
	BrandClass: footerBrandClass,
	Year:       footerCopyrightYear,
	BrandName:  portalBrandName,
	Tagline:    portalTagline,
	LinksClass: footerLinksClass,
	LinkClass:  footerLinkClass,
}

var anonymousFooterLinks = []footer.Link{
	{Label: "Sign in", URL: RouteLogin},
	{Label: "Create account", URL: RouteSignup},
}

func footerConfigFor(currentUser *CurrentUser) footer.Config {
	config := footerBaseConfig
	if currentUser == nil {
		config.Links = anonymousFooterLinks
		return config
	}
	config.SessionSummary = fmt.Sprintf(footerSessionTemplate, currentUser.Email, currentUser.RoleLabel())
	config.Links = []footer.Link{{Label: "Home", URL: currentUser.HomePath()}}
	return config
}

func renderFooterHTML(currentUser *CurrentUser) (template.HTML, error) {
	return footer.Render(footerConfigFor(currentUser))
}
