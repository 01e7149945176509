package conversation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
)

// shouldOpenMetadataGate implements the Metadata Request Gate (§4.7.4): the
// system asks for metadata at most once per conversion. All four
// conditions must hold for the gate to open.
func (a *Agent) shouldOpenMetadataGate() (open bool, missing []string) {
	isComplete, missingFields := a.registry.Validate(a.state.EffectiveMetadata())
	if isComplete {
		return false, nil // condition 1 fails
	}

	declined := a.state.DeclinedFields()
	var undeclined []string
	for _, f := range missingFields {
		if !declined[f] {
			undeclined = append(undeclined, f)
		}
	}
	if len(undeclined) == 0 {
		return false, nil // condition 2 fails
	}

	if a.state.MetadataRequestPolicy() != models.PolicyNotAsked {
		return false, nil // condition 3 fails
	}

	// Condition 4 (the last turn must not be a reply to a metadata request)
	// is subsumed by condition 3 here: metadata_request_policy only leaves
	// NOT_ASKED once this gate has opened (or the user has declined), so
	// reaching this point with policy still NOT_ASKED means no metadata
	// question has been asked yet in this conversion, regardless of what
	// the most recent user turn was about (e.g. a format selection reply).

	sort.Strings(undeclined)
	return true, undeclined
}

// buildMetadataQuestion renders the required-fields question. metadataGate
// opening sets metadata_request_policy <- ASKED_ONCE before this message is
// emitted (handled by the caller), not after, so a concurrent status poll
// never observes NOT_ASKED once the question is in flight.
func buildMetadataQuestion(missing []string) string {
	return fmt.Sprintf(
		"Before I convert this recording, I need a few more details: %s. "+
			"You can provide them all at once, ask me to go one at a time, or tell me to skip this for now.",
		strings.Join(missing, ", "))
}
