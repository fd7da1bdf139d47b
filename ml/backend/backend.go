package backend

import (
	_ "github.com/linerec/linerec/ml/backend/cpu"
)
