package chatprompt

import "slices"

// ExtractVariables returns the free variable names of src in first-occurrence order.
// Parse errors are the same as NewPromptTemplate's.
func ExtractVariables(src string, syntax Syntax) ([]string, error) {
	body, err := compile(src, syntax, nil)
	if err != nil {
		return nil, err
	}
	return slices.Clone(body.variables()), nil
}
