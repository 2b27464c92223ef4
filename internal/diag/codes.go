package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Семантические (type checker)
	SemaInfo                Code = 3000
	SemaTypeMismatch        Code = 3001
	SemaUndefinedVariable   Code = 3002
	SemaUndefinedFunction   Code = 3003
	SemaUndefinedType       Code = 3004
	SemaDuplicateDefinition Code = 3005
	SemaCannotInferType     Code = 3006
	SemaInvalidOperation    Code = 3007
	SemaMissingReturn       Code = 3008
	SemaWrongArgumentCount  Code = 3009
	SemaInvalidArgumentType Code = 3010
	SemaInvalidMemberAccess Code = 3011

	// Ownership / lifetimes
	OwnInfo            Code = 4000
	OwnBorrowEscape    Code = 4001
	OwnBorrowOfTemp    Code = 4002
	OwnSharedAcrossJob Code = 4003

	// IR validation
	IRInfo              Code = 5000
	IRInvalidSSA        Code = 5001
	IRInvalidReference  Code = 5002
	IRTypeMismatch      Code = 5003
	IRInvalidType       Code = 5004
	IRUndefinedVariable Code = 5005
	IRLowering          Code = 5006

	// Input documents and configuration
	CfgInfo            Code = 6000
	CfgUnknownNode     Code = 6001
	CfgMalformedNode   Code = 6002
	CfgDecodeFailed    Code = 6003
	CfgInvalidSetting  Code = 6004
	CfgCacheUnreadable Code = 6005
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown error",
	SemaInfo:                "Semantic information",
	SemaTypeMismatch:        "Type mismatch",
	SemaUndefinedVariable:   "Undefined variable",
	SemaUndefinedFunction:   "Undefined function",
	SemaUndefinedType:       "Undefined type",
	SemaDuplicateDefinition: "Duplicate definition",
	SemaCannotInferType:     "Cannot infer type",
	SemaInvalidOperation:    "Invalid operation",
	SemaMissingReturn:       "Missing return",
	SemaWrongArgumentCount:  "Wrong argument count",
	SemaInvalidArgumentType: "Invalid argument type",
	SemaInvalidMemberAccess: "Invalid member access",
	OwnInfo:                 "Ownership information",
	OwnBorrowEscape:         "Borrow outlives its scope",
	OwnBorrowOfTemp:         "Borrow of a temporary value",
	OwnSharedAcrossJob:      "Value shared across an async boundary",
	IRInfo:                  "IR information",
	IRInvalidSSA:            "Value assigned more than once",
	IRInvalidReference:      "Reference to a missing block",
	IRTypeMismatch:          "IR type mismatch",
	IRInvalidType:           "Invalid IR type",
	IRUndefinedVariable:     "Undefined IR value",
	IRLowering:              "IR lowering failed",
	CfgInfo:                 "Input information",
	CfgUnknownNode:          "Unknown AST node kind",
	CfgMalformedNode:        "Malformed AST node",
	CfgDecodeFailed:         "AST document could not be decoded",
	CfgInvalidSetting:       "Invalid configuration value",
	CfgCacheUnreadable:      "Cache entry could not be read",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OWN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IRV%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("CFG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
