package rollout

import (
	"strings"

	"github.com/leozw/ws-billing-resolver/internal/core"
)

type project struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type section struct {
	Name    string    `json:"name"`
	Project []project `json:"project"`
}

type subDivision struct {
	Name    string    `json:"name"`
	Section []section `json:"section"`
}

type division struct {
	Name        string        `json:"name"`
	SubDivision []subDivision `json:"subdivision"`
}

type circle struct {
	Name     string     `json:"name"`
	Division []division `json:"division"`
}

// zone is one entry of the tenant.projectmodule master.
type zone struct {
	Name   string   `json:"name"`
	Circle []circle `json:"circle"`
}

// VillageTenant derives the tenant id of a village project, e.g. "pb" and
// "Lodhi Pur" give "pb.lodhipur".
func VillageTenant(statePrefix, projectName string) core.TenantID {
	return core.TenantID(statePrefix + "." + strings.ToLower(strings.ReplaceAll(projectName, " ", "")))
}

// flatten lists every project of the hierarchy as a village in master order.
func flatten(zones []zone, statePrefix string) []core.Village {
	var villages []core.Village
	for _, z := range zones {
		for _, c := range z.Circle {
			for _, d := range c.Division {
				for _, sd := range d.SubDivision {
					for _, s := range sd.Section {
						for _, p := range s.Project {
							villages = append(villages, core.Village{
								TenantID:    VillageTenant(statePrefix, p.Name),
								ProjectCode: p.Code,
								Zone:        z.Name,
								Circle:      c.Name,
								Division:    d.Name,
								SubDivision: sd.Name,
								Section:     s.Name,
							})
						}
					}
				}
			}
		}
	}
	return villages
}
