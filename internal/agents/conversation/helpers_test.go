package conversation

import "github.com/agentic-neurodata/conversion-orchestrator/internal/logging"

func testLogger() *logging.Logger {
	l, err := logging.New("development")
	if err != nil {
		panic(err)
	}
	return l
}
