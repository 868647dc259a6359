package marketplace

import (
	"fmt"
	"net/url"

	"seller-onboarding/internal/common/config"
)

// routes holds the path templates of one endpoint family. Both families carry
// the same entity; only paths and the ID key differ.
type routes struct {
	idKey             string
	businessByUser    string
	businessGet       string
	businessCreate    string
	businessUpdate    string
	legalGet          string
	legalCreate       string
	legalUpdate       string
	socialGet         string
	socialCreate      string
	socialUpdate      string
	applicationGet    string
	applicationCreate string
}

func routesFor(family string) routes {
	prefix := "business"
	idKey := "business_id"
	appGet := "/business/application/get/business/%s"
	if family == config.FamilyCompany {
		prefix = "company"
		idKey = "company_id"
		appGet = "/company/application/get/company/%s"
	}
	return routes{
		idKey:             idKey,
		businessByUser:    "/" + prefix + "/get/user/%s",
		businessGet:       "/" + prefix + "/get/%s",
		businessCreate:    "/" + prefix + "/create",
		businessUpdate:    "/" + prefix + "/update/%s",
		legalGet:          "/" + prefix + "/legal/get/%s",
		legalCreate:       "/" + prefix + "/legal/create",
		legalUpdate:       "/" + prefix + "/legal/update/%s",
		socialGet:         "/" + prefix + "/social/get/%s",
		socialCreate:      "/" + prefix + "/social/create",
		socialUpdate:      "/" + prefix + "/social/update/%s",
		applicationGet:    appGet,
		applicationCreate: "/" + prefix + "/application/create",
	}
}

func path(tmpl, id string) string {
	return fmt.Sprintf(tmpl, url.PathEscape(id))
}
