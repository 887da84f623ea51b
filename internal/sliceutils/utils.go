package sliceutils

func Map[T any, U any](input []T, mapper func(T) U) []U {
	output := make([]U, len(input))
	for i, v := range input {
		output[i] = mapper(v)
	}
	return output
}

func Flat[T any](input [][]T) []T {
	var output []T
	for _, arr := range input {
		output = append(output, arr...)
	}
	return output
}
