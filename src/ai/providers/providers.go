package providers

import (
	_ "github.com/grantpath/grantpath/src/ai/anthropic"
	_ "github.com/grantpath/grantpath/src/ai/openai"
)
