package worker

import (
	"encoding/json"
	stderrors "errors"

	"github.com/sourcegraph/jsonrpc2"

	"tsbridge/internal/engine"
	"tsbridge/internal/errors"
	"tsbridge/internal/model"
)

// Methods of the worker protocol.
const (
	MethodAcceptDefaults                = "acceptDefaults"
	MethodSyncModels                    = "$/syncModels"
	MethodCancelRequest                 = "$/cancelRequest"
	MethodSyntacticDiagnostics          = "getSyntacticDiagnostics"
	MethodSemanticDiagnostics           = "getSemanticDiagnostics"
	MethodCompilerOptionsDiagnostics    = "getCompilerOptionsDiagnostics"
	MethodCompletionsAtPosition         = "getCompletionsAtPosition"
	MethodCompletionEntryDetails        = "getCompletionEntryDetails"
	MethodSignatureHelpItems            = "getSignatureHelpItems"
	MethodQuickInfoAtPosition           = "getQuickInfoAtPosition"
	MethodOccurrencesAtPosition         = "getOccurrencesAtPosition"
	MethodDefinitionAtPosition          = "getDefinitionAtPosition"
	MethodReferencesAtPosition          = "getReferencesAtPosition"
	MethodNavigationBarItems            = "getNavigationBarItems"
	MethodFormattingEditsForDocument    = "getFormattingEditsForDocument"
	MethodFormattingEditsForRange       = "getFormattingEditsForRange"
	MethodFormattingEditsAfterKeystroke = "getFormattingEditsAfterKeystroke"
	MethodEmitOutput                    = "getEmitOutput"
)

// CodeRequestCancelled is the JSON-RPC error code for a cancelled request.
const CodeRequestCancelled int64 = -32800

type AcceptDefaultsParams struct {
	CompilerOptions engine.CompilerOptions `json:"compilerOptions"`
	ExtraLibs       map[string]string      `json:"extraLibs"`
}

type SyncModelsParams struct {
	Models  []model.State `json:"models,omitempty"`
	Removed []string      `json:"removed,omitempty"`
}

// SyncModelsResult reports the mirrored version of every document after a sync.
type SyncModelsResult struct {
	Versions map[string]int `json:"versions"`
}

type CancelParams struct {
	ID jsonrpc2.ID `json:"id"`
}

type FileParams struct {
	FileName string `json:"fileName"`
}

type PositionParams struct {
	FileName string `json:"fileName"`
	Position int    `json:"position"`
}

type CompletionDetailsParams struct {
	FileName  string `json:"fileName"`
	Position  int    `json:"position"`
	EntryName string `json:"entryName"`
}

type DocumentFormatParams struct {
	FileName string                   `json:"fileName"`
	Options  engine.FormatCodeOptions `json:"options"`
}

type RangeFormatParams struct {
	FileName string                   `json:"fileName"`
	Start    int                      `json:"start"`
	End      int                      `json:"end"`
	Options  engine.FormatCodeOptions `json:"options"`
}

type KeystrokeFormatParams struct {
	FileName string                   `json:"fileName"`
	Position int                      `json:"position"`
	Key      string                   `json:"key"`
	Options  engine.FormatCodeOptions `json:"options"`
}

type errorData struct {
	Code errors.ErrorCode `json:"code"`
}

// ToRPCError converts an endpoint error into a JSON-RPC error carrying the
// bridge error code in its data.
func ToRPCError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error
	if stderrors.As(err, &rpcErr) {
		return rpcErr
	}
	code := errors.CodeOf(err)
	wire := int64(jsonrpc2.CodeInternalError)
	switch code {
	case errors.Cancelled:
		wire = CodeRequestCancelled
	case errors.InvalidParams:
		wire = jsonrpc2.CodeInvalidParams
	}
	msg := err.Error()
	var be *errors.BridgeError
	if stderrors.As(err, &be) {
		msg = be.Message
		if cause := be.Unwrap(); cause != nil {
			msg += ": " + cause.Error()
		}
	}
	out := &jsonrpc2.Error{Code: wire, Message: msg}
	if b, mErr := json.Marshal(errorData{Code: code}); mErr == nil {
		raw := json.RawMessage(b)
		out.Data = &raw
	}
	return out
}

// FromRPCError converts an error returned by a JSON-RPC call back into a
// bridge error. Non-RPC errors are returned unchanged.
func FromRPCError(err error) error {
	var rpcErr *jsonrpc2.Error
	if !stderrors.As(err, &rpcErr) {
		return err
	}
	code := errors.InternalError
	if rpcErr.Data != nil {
		var data errorData
		if json.Unmarshal(*rpcErr.Data, &data) == nil && data.Code != "" {
			code = data.Code
		}
	} else {
		switch rpcErr.Code {
		case CodeRequestCancelled:
			code = errors.Cancelled
		case jsonrpc2.CodeInvalidParams:
			code = errors.InvalidParams
		}
	}
	return errors.New(code, rpcErr.Message, nil)
}
