package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeAttributes_SharedKeyUnion(t *testing.T) {
	existing := AttributeMap{"hair.color": {"Brown", "Long"}}
	additional := AttributeMap{"hair.color": {"Long", "Red"}}

	merged := MergeAttributes(existing, additional)

	assert.Equal(t, []string{"Brown", "Long", "Red"}, merged["hair.color"])
	assert.Subset(t, merged["hair.color"], existing["hair.color"])
	assert.Subset(t, merged["hair.color"], additional["hair.color"])
}

func TestMergeAttributes_DisjointKeysCommute(t *testing.T) {
	a := AttributeMap{"hair.color": {"Brown"}, "eyes.color": {"Green"}}
	b := AttributeMap{"feet.aroma": {"Smelly"}}

	assert.Equal(t, MergeAttributes(a, b), MergeAttributes(b, a))
	assert.Len(t, MergeAttributes(a, b), 3)
}

func TestMergeAttributes_DeduplicatesAndDoesNotMutate(t *testing.T) {
	existing := AttributeMap{"personality.traits": {"Brave", "Brave", "Kind"}}
	additional := AttributeMap{"personality.traits": {"Kind", "Loyal"}}

	merged := MergeAttributes(existing, additional)

	assert.Equal(t, []string{"Brave", "Kind", "Loyal"}, merged["personality.traits"])
	assert.Equal(t, []string{"Brave", "Brave", "Kind"}, existing["personality.traits"])
	assert.Equal(t, []string{"Kind", "Loyal"}, additional["personality.traits"])

	merged["personality.traits"][0] = "Changed"
	assert.Equal(t, "Brave", existing["personality.traits"][0])
}

func TestMergeAttributes_NilInputs(t *testing.T) {
	merged := MergeAttributes(nil, nil)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)

	merged = MergeAttributes(nil, AttributeMap{"hair.color": {"Red"}})
	assert.Equal(t, AttributeMap{"hair.color": {"Red"}}, merged)
}
