package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestExtractImports checks every import form and that duplicates are reported once in order of appearance.
func TestExtractImports(t *testing.T) {
	source := `
pragma solidity ^0.8.20;

import "./A.sol";
import './B.sol' as B;
import * as C from "./C.sol";
import {D, E as F} from
    "./D.sol";
import "./A.sol";

contract Foo {}
`
	assert.Equal(t, []string{"./A.sol", "./B.sol", "./C.sol", "./D.sol"}, ExtractImports(source))
}

// TestExtractImportsIgnoresComments checks that imports inside line and block comments are not reported, while
// comment markers inside strings do not start a comment.
func TestExtractImportsIgnoresComments(t *testing.T) {
	source := `
// import "@openzeppelin/contracts/access/Ownable.sol";
/*
import "./Hidden.sol";
*/
import "./Visible.sol"; // trailing comment
contract Foo {
    string constant URL = "https://example.com/*"; // not a block comment
}
import "./After.sol";
`
	assert.Equal(t, []string{"./Visible.sol", "./After.sol"}, ExtractImports(source))
}

// TestStripCommentsPreservesLayout checks that stripping keeps the length and line structure of the source.
func TestStripCommentsPreservesLayout(t *testing.T) {
	source := "a // b\nc /* d\ne */ f\n'g // h'"
	stripped := StripComments(source)
	assert.Len(t, stripped, len(source))
	assert.Equal(t, "a     \nc     \n     f\n'g // h'", stripped)
}
