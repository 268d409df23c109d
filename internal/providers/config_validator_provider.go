package providers

import (
	"fmt"
	"publishd/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	if !v.Validate() {
		return v.Errors
	}

	// Cross-field rules the tag syntax cannot express.
	if c.conf.Deploy.BakeTimeout < 0 {
		return fmt.Errorf("deploy.bakeTimeout must not be negative")
	}
	if len(c.conf.Deploy.FullBakeCommand) == 0 && len(c.conf.Deploy.LightningBakeCommand) > 0 {
		return fmt.Errorf("deploy.lightningBakeCommand requires deploy.fullBakeCommand")
	}
	return nil
}
