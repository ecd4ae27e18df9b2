package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgVersionInfo   = "Version: %s\nBuilt: %s"
	MsgStartPrompt   = `
		🐶 Send me one or more photos of a dog and I'll estimate its breed mix.

		Optional details help the estimate:
		/weight 25kg - set the weight
		/length 80cm - set the length
		/age 3 years - set the age

		/analyze - analyze the photos
		/remove <n> - remove photo number n
		/status - show the current photos and details
		/clear - start over`
)

// =============================================================================
// Photo messages
// =============================================================================

const (
	MsgPhotoPreviewFmt     = "📷 Photo %d"
	MsgPhotoNotFound       = "That photo is no longer in the list."
	MsgRemoveUsage         = "Usage: `/remove <number>`, for example `/remove 2`."
	MsgTooManyPhotosFmt    = "You can add at most %d photos. Remove some before adding more."
	MsgPhotoDownloadFailed = "Could not download the photo. Please try sending it again."
	MsgUnsupportedFile     = "Only image files are supported."
	MsgButtonRemove        = "✖ Remove"
)

// =============================================================================
// Metadata messages
// =============================================================================

const (
	MsgMetadataPromptFmt    = "Send the dog's %s (for example %s), or `-` to clear it. /cancel to keep it unchanged."
	MsgMetadataSetFmt       = "✅ %s set to %s."
	MsgMetadataClearedFmt   = "✅ %s cleared."
	MsgMetadataInputCancel  = "Ok, details unchanged."
	MsgNothingToCancel      = "Nothing to cancel."
	MsgButtonSetMetadataFmt = "✏️ %s"
)

// =============================================================================
// Status panel
// =============================================================================

const (
	MsgStatusEmpty        = "No photos yet. Send a photo of a dog to get started."
	MsgStatusPhotosFmt    = "*%s* ready for analysis."
	MsgStatusDetails      = "*Details:*"
	MsgStatusNoDetails    = "_No details given._"
	MsgStatusLoading      = "⏳ Analyzing..."
	MsgButtonAnalyze      = "🔍 Analyze"
	MsgButtonClear        = "🗑 Clear"
	MsgCleared            = "Cleared. Send a new photo to start over."
	MsgNothingToClear     = "Nothing to clear."
	MsgNoPhotosToAnalyze  = "Add at least one photo before analyzing."
	MsgAnalysisInProgress = "Analysis in progress, please wait."
)

// =============================================================================
// Analysis result
// =============================================================================

const (
	MsgAnalysisFailed = "We couldn't analyze those images. Please check your connection or try different photos."
	MsgResultTitle    = "🐕 *Breed analysis*"
	MsgResultNotDog   = "This doesn't look like a dog."
	MsgResultMixed    = "Likely a *mixed breed*."
	MsgResultPurebred = "Likely a *purebred*."
	MsgResultBreeds   = "*Breeds:*"
	MsgResultTraits   = "*Characteristics:*"
	MsgResultNotes    = "*Notes:*"
	MsgResultFooter   = "_Results are for entertainment purposes. Always consult a vet._"
)
